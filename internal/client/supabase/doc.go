// Package supabase talks to a Supabase project over its REST surfaces.
//
// AuthClient wraps the GoTrue auth API: password and PKCE OAuth sign-in,
// sign-up, password recovery, sign-out and token refresh. The current
// session is kept in memory and persisted to the local metadata store so a
// restarted CLI resumes signed in. Listeners registered with OnSessionChange
// receive SIGNED_IN, SIGNED_OUT and TOKEN_REFRESHED events; AutoRefresh
// renews the access token shortly before it expires.
//
// SessionStore implements sessions.Repository on top of the PostgREST
// chat_sessions table, authenticating with the signed-in user's access token.
//
// Access tokens are decoded without signature verification; the project is
// the authority on their validity and rejects bad tokens server-side.
package supabase
