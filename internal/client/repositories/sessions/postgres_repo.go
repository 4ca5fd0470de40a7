package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/migrations"
)

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects to dsn through pgx and applies the Postgres migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := dbx.Migrate(ctx, db, "postgres", migrations.Postgres, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (r *PostgresRepository) Create(ctx context.Context, userID, title string, messages []models.Message) (*models.Session, error) {
	raw, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO chat_sessions (user_id, title, messages)
		 VALUES ($1, $2, $3::jsonb)
		 RETURNING id, created_at, updated_at
		 `

	s := &models.Session{UserID: userID, Title: title, Messages: messages}
	err = r.db.QueryRowContext(ctx, query, userID, title, raw).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}

	return s, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id, title string, messages []models.Message) (*models.Session, error) {
	raw, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE chat_sessions SET title = $1, messages = $2::jsonb, updated_at = now()
		 WHERE id = $3
		 RETURNING user_id, created_at, updated_at
		 `

	s := &models.Session{ID: id, Title: title, Messages: messages}
	err = r.db.QueryRowContext(ctx, query, title, raw, id).Scan(&s.UserID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}

	return s, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	query :=
		`SELECT id, user_id, title, messages, created_at, updated_at FROM chat_sessions
		 WHERE user_id = $1
		 ORDER BY updated_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Session{}
	for rows.Next() {
		s, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query :=
		`SELECT id, user_id, title, messages, created_at, updated_at FROM chat_sessions
		 WHERE id = $1
		 `

	s, err := scanPostgres(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanPostgres(row scanner) (*models.Session, error) {
	var (
		s   models.Session
		raw []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	msgs, err := decodeMessages(raw)
	if err != nil {
		return nil, err
	}
	s.Messages = msgs
	return &s, nil
}
