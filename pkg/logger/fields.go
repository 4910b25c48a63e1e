package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldPhase     = "phase"
	FieldOutcome   = "outcome"
	FieldPersistID = "persist_id"
	FieldBackend   = "backend"
	FieldAttempt   = "attempt"
)
