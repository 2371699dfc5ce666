package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"review-service/internal/auth"
	"review-service/internal/db"
	"review-service/internal/logger"
	"review-service/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidUserID      = errors.New("user id required")
)

// secretBytes is the entropy of a generated session key.
const secretBytes = 16

// SessionRevoker drops every login session of a user.
type SessionRevoker interface {
	DeleteUser(ctx context.Context, userID string) error
}

type Service struct {
	db      *db.DB
	revoker SessionRevoker
	now     func() time.Time
}

func NewService(db *db.DB, revoker SessionRevoker) *Service {
	return &Service{db: db, revoker: revoker, now: time.Now}
}

// Create registers a user with a freshly generated secret.
func (s *Service) Create(ctx context.Context, userID string, role auth.Role) (Issued, error) {
	secret, err := utils.RandomString(secretBytes)
	if err != nil {
		return Issued{}, err
	}
	if err := s.CreateWithSecret(ctx, userID, role, secret); err != nil {
		return Issued{}, err
	}
	return Issued{ID: strings.TrimSpace(userID), Role: role, SessionKey: secret}, nil
}

// CreateWithSecret registers a user with a caller-chosen secret. Used for
// the bootstrap admin and fixtures.
func (s *Service) CreateWithSecret(ctx context.Context, userID string, role auth.Role, secret string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUserID
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}

	now := db.FormatTime(s.now())
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (id, role, secret_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), userID, string(role), hash, now, now)
	if err != nil {
		return fmt.Errorf("credentials: insert user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credentials: insert user: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}

	logger.Info("user created", map[string]any{
		"user_id": userID,
		"role":    string(role),
	})
	return nil
}

// RotateSecret replaces the user's secret. The old secret stops working
// on commit and every login session of the user is revoked.
func (s *Service) RotateSecret(ctx context.Context, userID string) (Issued, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return Issued{}, err
	}

	secret, err := utils.RandomString(secretBytes)
	if err != nil {
		return Issued{}, err
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return Issued{}, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE users SET secret_hash = ?, updated_at = ?
		WHERE id = ?
	`), hash, db.FormatTime(s.now()), u.ID)
	if err != nil {
		return Issued{}, fmt.Errorf("credentials: rotate secret: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Issued{}, ErrUserNotFound
	}

	if s.revoker != nil {
		if err := s.revoker.DeleteUser(ctx, u.ID); err != nil {
			// the secret is already rotated; stale sessions expire on their own
			logger.Error("failed to revoke sessions after rotation", map[string]any{
				"user_id": u.ID,
				"error":   err.Error(),
			})
		}
	}

	logger.Info("user secret rotated", map[string]any{"user_id": u.ID})
	return Issued{ID: u.ID, Role: u.Role, SessionKey: secret}, nil
}

// Authenticate checks a user id + secret pair.
func (s *Service) Authenticate(ctx context.Context, userID, secret string) (User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		// hide whether user exists or not
		return User{}, ErrInvalidCredentials
	}
	if err := VerifySecret(u.SecretHash, secret); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, role, secret_hash, created_at, updated_at
		FROM users
		WHERE id = ?
	`), userID)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("credentials: get user: %w", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, secret_hash, created_at, updated_at
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("credentials: list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("credentials: list users: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var (
		u                  User
		role               string
		created, updated string
	)
	if err := row.Scan(&u.ID, &role, &u.SecretHash, &created, &updated); err != nil {
		return User{}, err
	}
	u.Role = auth.Role(role)

	var err error
	if u.CreatedAt, err = db.ParseTime(created); err != nil {
		return User{}, err
	}
	if u.UpdatedAt, err = db.ParseTime(updated); err != nil {
		return User{}, err
	}
	return u, nil
}
