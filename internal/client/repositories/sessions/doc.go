// Package sessions persists chat sessions.
//
// # Overview
//
// Repository is the CRUD contract used by the chat controller. Two SQL
// implementations live here:
//
//   - SQLiteRepository: the local database file (default store; works in
//     skip-auth mode without any network access).
//   - PostgresRepository: a shared Postgres database reached through the pgx
//     database/sql driver.
//
// The hosted Supabase table is served by supabase.SessionStore, which
// satisfies the same interface.
//
// # Data Model
//
// A session row holds the owner id, a title, the transcript as a JSON array
// of models.Message, and created/updated timestamps. ListByUser returns rows
// ordered by updated_at, newest first.
//
// Missing rows are reported as common.ErrNotFound.
//
// Typical Usage
//
//	repo := sessions.NewSQLiteRepository(db)
//	s, _ := repo.Create(ctx, userID, "New Chat", msgs)
//	_, _ = repo.Update(ctx, s.ID, "Renamed", msgs)
//	list, _ := repo.ListByUser(ctx, userID)
package sessions
