package apperr

type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidTarget   Code = "INVALID_TARGET"
	CodeInvalidMessage  Code = "INVALID_MESSAGE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
)
