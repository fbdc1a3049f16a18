// Package contact records messages submitted through the contact page.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Message is one contact form submission.
type Message struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists contact messages.
type Store interface {
	Save(ctx context.Context, m Message) (int64, error)
	Recent(ctx context.Context, limit int) ([]Message, error)
	Close() error
}

var errEmptyMessage = errors.New("contact: name, email or message is required")

// Open picks a store by DSN: "" means none, postgres:// or postgresql:// use pgx,
// anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Recorder logs every message and saves it when a store is configured.
type Recorder struct {
	Store Store
}

// Record logs m and persists it. Store failures are logged, never returned to the visitor.
func (r *Recorder) Record(ctx context.Context, m Message) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	slog.Info(fmt.Sprintf("New Contact Message: %s, %s, %s", m.Name, m.Email, m.Message))

	if r == nil || r.Store == nil {
		return
	}
	if _, err := r.Store.Save(ctx, m); err != nil {
		slog.Warn("contact: save failed", slog.Any("error", err))
	}
}

func validate(m Message) error {
	if strings.TrimSpace(m.Name) == "" && strings.TrimSpace(m.Email) == "" && strings.TrimSpace(m.Message) == "" {
		return errEmptyMessage
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
