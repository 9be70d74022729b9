package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smartattend/internal/model"
)

// ErrInvalidCredentials covers both unknown usernames and bad passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository reads login identities from Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Authenticate checks a username/password pair and returns the typed
// identity on success.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, password_hash, role, profile_id FROM users WHERE username = $1
	`, username)

	var id, hash, profileID string
	var role model.Role
	if err := row.Scan(&id, &hash, &role, &profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{UserID: id, Role: role, ProfileID: profileID}, nil
}

// CreateUser registers a login bound to one profile.
func (r *Repository) CreateUser(ctx context.Context, username, password string, role model.Role, profileID string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		ProfileID: profileID,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, profile_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, u.ID, u.Username, string(hash), u.Role, u.ProfileID, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}
