// Package outcome defines the caller-visible result vocabulary shared by the
// orchestrator and the transport adapter.
package outcome

type Code string

const (
	// CodeOK is a terminal success with the entity attached.
	CodeOK Code = "OK"
	// CodeAccepted acknowledges an operation that has not settled yet;
	// the caller polls retrieval until a terminal status appears.
	CodeAccepted       Code = "ACCEPTED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeForbidden      Code = "FORBIDDEN"
	CodeInternal       Code = "INTERNAL"
	CodeNotImplemented Code = "NOT_IMPLEMENTED"
)

type Outcome struct {
	Code    Code
	Message string
}

func OK() Outcome {
	return Outcome{Code: CodeOK}
}

func Accepted() Outcome {
	return Outcome{Code: CodeAccepted}
}

func NotFound(msg string) Outcome {
	return Outcome{Code: CodeNotFound, Message: msg}
}

func Forbidden(msg string) Outcome {
	return Outcome{Code: CodeForbidden, Message: msg}
}

func Internal(msg string) Outcome {
	return Outcome{Code: CodeInternal, Message: msg}
}

func NotImplemented() Outcome {
	return Outcome{Code: CodeNotImplemented}
}

func (o Outcome) Success() bool {
	return o.Code == CodeOK || o.Code == CodeAccepted
}
