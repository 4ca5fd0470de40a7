// Package cli provides the interactive gophchat command-line client.
//
// It wires the auth state machine, the chat session controller and the
// chat backend into a REPL. Until a user is signed in the REPL acts as the
// login screen; afterwards plain lines are chat messages and slash commands
// drive the history sidebar, the recommendation panel and image
// attachments. A background watcher polls the backend health endpoint and
// its result is shown in the prompt.
//
// Key features:
//   - Sign in / sign up / password reset / OAuth (PKCE) / skip-auth mode
//   - Send messages, optionally with an image
//   - Browse, open, rename and delete stored chats
//   - Show and browse learning recommendations
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See App, StartHealthWatcher and runREPL for details.
package cli
