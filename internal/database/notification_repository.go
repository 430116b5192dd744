package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Notification is one delivered achievement notification
type Notification struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// NotificationRepository keeps an append-only notification history
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new repository instance
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert appends n to the history
func (r *NotificationRepository) Insert(ctx context.Context, n Notification) error {
	query := r.db.Rebind("INSERT INTO notifications (title, body, created_at) VALUES (?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, n.Title, n.Body, n.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first
func (r *NotificationRepository) Recent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Notification
	query := r.db.Rebind("SELECT id, title, body, created_at FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?")
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent notifications: %w", err)
	}
	return out, nil
}
