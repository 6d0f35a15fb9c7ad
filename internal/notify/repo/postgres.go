package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/bolaofpt/bolao-core/internal/notify"
)

type Postgres struct {
	DB *sql.DB
}

func New(db *sql.DB) *Postgres { return &Postgres{DB: db} }

// InsertBatch grava as notificações em uma transação. Data vai como JSONB.
func (p *Postgres) InsertBatch(ctx context.Context, ns []notify.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW());
	`
	for _, n := range ns {
		id := n.ID
		if id == "" {
			id = uuid.NewString()
		}
		data, err := json.Marshal(n.Data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, id, n.UserID, n.Type, n.Title, n.Message, data); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByUser retorna as notificações mais recentes do usuário.
func (p *Postgres) ListByUser(ctx context.Context, userID string, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, user_id, type, title, message, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := p.DB.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := p.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&n)
	return n, err
}

// MarkRead marca uma notificação como lida. user_id no WHERE impede
// marcar notificação de outro usuário.
func (p *Postgres) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := p.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (p *Postgres) MarkAllRead(ctx context.Context, userID string) error {
	_, err := p.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	return err
}

func (p *Postgres) Delete(ctx context.Context, userID, notificationID string) error {
	res, err := p.DB.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
