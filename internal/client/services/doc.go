// Package services contains application services for the gophchat client.
//
// AuthStateMachine reconciles the auth provider's session, its pushed
// session events and the local skip-auth flag into one published AuthState.
//
// ChatController owns the active chat: the message list, the staged image,
// single-flight sends to the chat API, recommendation merging, debounced
// autosave and session switch/rename/delete.
//
// Both take their collaborators through constructors. A missing required
// collaborator is reported as common.ErrMissingDependency instead of being
// replaced by a silent default.
package services
