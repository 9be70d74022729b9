package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartattend/internal/model"
)

// Identity is the typed role context resolved once at login and passed into
// every operation. Nothing downstream re-derives a role by probing.
type Identity struct {
	UserID    string     `json:"user_id"`
	Role      model.Role `json:"role"`
	ProfileID string     `json:"profile_id"`
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims represents the JWT payload.
type Claims struct {
	Role      model.Role `json:"role"`
	ProfileID string     `json:"profile_id"`
	jwt.RegisteredClaims
}

// Issue issues signed access and refresh tokens carrying the identity.
func Issue(id Identity, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	sign := func(exp time.Time) (string, error) {
		claims := Claims{
			Role:      id.Role,
			ProfileID: id.ProfileID,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   id.UserID,
				ExpiresAt: jwt.NewNumericDate(exp),
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	}

	accessToken, err := sign(accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := sign(refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Parse validates a token and returns the identity it carries.
func Parse(tokenStr, key, issuer string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Identity{}, errors.New("issuer mismatch")
	}
	switch claims.Role {
	case model.RoleHOD, model.RoleFaculty, model.RoleStudent:
	default:
		return Identity{}, errors.New("unknown role")
	}
	return Identity{UserID: claims.Subject, Role: claims.Role, ProfileID: claims.ProfileID}, nil
}
