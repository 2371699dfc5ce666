// Package seed loads reference data and fixture users from YAML.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"review-service/internal/auth"
	"review-service/internal/auth/credentials"
	"review-service/internal/logger"
	"review-service/internal/review"
)

type Fixture struct {
	Sessions []struct {
		ID        string    `yaml:"id"`
		CreatedAt time.Time `yaml:"created_at"`
	} `yaml:"sessions"`

	Strategies []review.Strategy `yaml:"strategies"`

	Events []struct {
		ID        string         `yaml:"id"`
		SessionID string         `yaml:"session_id"`
		Strategy  string         `yaml:"strategy"`
		Score     float64        `yaml:"score"`
		Timestamp time.Time      `yaml:"timestamp"`
		Details   map[string]any `yaml:"details"`
	} `yaml:"events"`

	Users []struct {
		ID         string    `yaml:"id"`
		Role       auth.Role `yaml:"role"`
		SessionKey string    `yaml:"session_key"`
	} `yaml:"users"`

	Permissions []struct {
		UserID     string   `yaml:"user_id"`
		SessionIDs []string `yaml:"session_ids"`
	} `yaml:"permissions"`
}

// Store is the write side the loader needs.
type Store interface {
	UpsertSession(ctx context.Context, s review.Session) error
	UpsertStrategy(ctx context.Context, s review.Strategy) error
	UpsertEvent(ctx context.Context, e review.Event) error
	SetPermission(ctx context.Context, userID, sessionID string, canVote bool) error
}

type Users interface {
	Create(ctx context.Context, userID string, role auth.Role) (credentials.Issued, error)
	CreateWithSecret(ctx context.Context, userID string, role auth.Role, secret string) error
}

func LoadFile(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("seed: parse: %w", err)
	}
	return f, nil
}

// Apply upserts the reference data and creates missing users. Users
// listed without a session_key get a generated one, returned in issued;
// users that already exist are skipped.
func Apply(ctx context.Context, f Fixture, store Store, users Users) (issued []credentials.Issued, err error) {
	for _, s := range f.Sessions {
		createdAt := s.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if err := store.UpsertSession(ctx, review.Session{ID: s.ID, CreatedAt: createdAt}); err != nil {
			return nil, err
		}
	}

	for _, st := range f.Strategies {
		if st.Name == "" {
			st.Name = st.ID
		}
		if err := store.UpsertStrategy(ctx, st); err != nil {
			return nil, err
		}
	}

	for _, e := range f.Events {
		ev := review.Event{
			ID:        e.ID,
			SessionID: e.SessionID,
			Strategy:  e.Strategy,
			Score:     e.Score,
			Timestamp: e.Timestamp,
		}
		if len(e.Details) > 0 {
			if ev.Details, err = json.Marshal(e.Details); err != nil {
				return nil, fmt.Errorf("seed: event %s details: %w", e.ID, err)
			}
		}
		if err := store.UpsertEvent(ctx, ev); err != nil {
			return nil, err
		}
	}

	for _, u := range f.Users {
		role := u.Role
		if role == "" {
			role = auth.RoleUser
		}

		if u.SessionKey != "" {
			err = users.CreateWithSecret(ctx, u.ID, role, u.SessionKey)
		} else {
			var iss credentials.Issued
			iss, err = users.Create(ctx, u.ID, role)
			if err == nil {
				issued = append(issued, iss)
			}
		}
		if errors.Is(err, credentials.ErrAlreadyExists) {
			logger.Info("seed user exists, skipping", map[string]any{"user_id": u.ID})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed: user %s: %w", u.ID, err)
		}
	}

	for _, p := range f.Permissions {
		for _, sid := range p.SessionIDs {
			if err := store.SetPermission(ctx, p.UserID, sid, true); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("seed applied", map[string]any{
		"sessions":   len(f.Sessions),
		"strategies": len(f.Strategies),
		"events":     len(f.Events),
		"users":      len(f.Users),
	})
	return issued, nil
}
