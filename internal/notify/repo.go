package notify

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"smartattend/internal/model"
)

// ErrNotificationNotFound is returned for unknown notification ids.
var ErrNotificationNotFound = errors.New("notification not found")

// Repository persists notifications in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create writes a notification row.
func (r *Repository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	if n.Type == "" {
		n.Type = model.NotifTypeAbsence
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, student_id, message, notif_type, is_read, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, n.ID, n.StudentID, n.Message, n.Type, n.Read, n.SentAt)
	return err
}

// Get returns one notification.
func (r *Repository) Get(ctx context.Context, id string) (*model.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, message, notif_type, is_read, sent_at
		FROM notifications WHERE id = $1
	`, id)
	var n model.Notification
	if err := row.Scan(&n.ID, &n.StudentID, &n.Message, &n.Type, &n.Read, &n.SentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListByStudent returns a student's notifications, newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, message, notif_type, is_read, sent_at
		FROM notifications WHERE student_id = $1
		ORDER BY sent_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.StudentID, &n.Message, &n.Type, &n.Read, &n.SentAt); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// CountUnread returns how many unread notifications a student has.
func (r *Repository) CountUnread(ctx context.Context, studentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE student_id = $1 AND is_read = FALSE
	`, studentID).Scan(&n)
	return n, err
}

// MarkAllRead flags every notification of a student as read. The
// notifications screen calls this on fetch.
func (r *Repository) MarkAllRead(ctx context.Context, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE student_id = $1 AND is_read = FALSE
	`, studentID)
	return err
}
