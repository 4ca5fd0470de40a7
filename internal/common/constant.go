package common

const (
	// DefaultChatTitle is the title of a chat that has no content yet.
	DefaultChatTitle = "New Chat"

	// BypassUserID identifies the identity synthesized in skip-auth mode.
	BypassUserID = "test-user"

	// SkipAuthKey is the local metadata key holding the skip-auth flag.
	SkipAuthKey = "skipAuth"

	// AuthSessionKey is the local metadata key holding the persisted provider session.
	AuthSessionKey = "auth.session"
)
