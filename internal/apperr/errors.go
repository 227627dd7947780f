package apperr

var (
	// Domain sentinels used by the service and repository layers.
	ErrSelfConversation = InvalidTarget("cannot start a conversation with yourself")
	ErrBadParticipant   = InvalidTarget("participant id must not be empty")
	ErrMalformedKey     = InvalidTarget("malformed conversation key")
	ErrEmptyMessage     = InvalidMessage("message text must not be empty")
	ErrUserNotFound     = NotFound("user not found")
	ErrConvNotFound     = NotFound("conversation not found")
)
