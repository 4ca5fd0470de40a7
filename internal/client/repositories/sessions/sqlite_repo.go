package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
)

// timeLayout is fixed-width so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

// inTx runs fn in a transaction when the repository owns a *sql.DB.
// A repository built on a *sql.Tx runs fn on that transaction directly.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(ctx context.Context, q dbx.DBTX) error) error {
	if db, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, fn)
	}
	return fn(ctx, r.db)
}

func (r *SQLiteRepository) Create(ctx context.Context, userID, title string, messages []models.Message) (*models.Session, error) {
	raw, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ts := r.stamp()

	var s *models.Session
	err = r.inTx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		query := `INSERT INTO chat_sessions (id, user_id, title, messages, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := q.ExecContext(ctx, query, id, userID, title, raw, ts, ts); err != nil {
			return err
		}
		s, err = getSQLite(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return s, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id, title string, messages []models.Message) (*models.Session, error) {
	raw, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}

	var s *models.Session
	err = r.inTx(ctx, func(ctx context.Context, q dbx.DBTX) error {
		query := `UPDATE chat_sessions SET title = ?, messages = ?, updated_at = ? WHERE id = ?`
		result, err := q.ExecContext(ctx, query, title, raw, r.stamp(), id)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return common.ErrNotFound
		}

		s, err = getSQLite(ctx, q, id)
		return err
	})
	if errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return s, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	query := `SELECT id, user_id, title, messages, created_at, updated_at
			FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	result := []models.Session{}
	for rows.Next() {
		s, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	return getSQLite(ctx, r.db, id)
}

func getSQLite(ctx context.Context, q dbx.DBTX, id string) (*models.Session, error) {
	query := `SELECT id, user_id, title, messages, created_at, updated_at
			FROM chat_sessions WHERE id = ?`
	s, err := scanSQLite(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (*models.Session, error) {
	var (
		s                    models.Session
		raw                  []byte
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &raw, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	msgs, err := decodeMessages(raw)
	if err != nil {
		return nil, err
	}
	s.Messages = msgs

	// Unparseable timestamps stay zero; history grouping files them as older.
	s.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)

	return &s, nil
}
