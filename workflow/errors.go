package workflow

import "fmt"

// Error kinds, mapped to HTTP statuses at the API boundary.
const (
	KindConflict      = "conflict"
	KindValidation    = "validation"
	KindAuthorization = "authorization"
	KindNotFound      = "not_found"
)

// Error carries a machine-readable reason code alongside the human detail so
// clients can branch without parsing text.
type Error struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Detail)
}

func conflictErr(reason, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func validationErr(reason, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func authErr(reason, format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: "not_found", Detail: fmt.Sprintf(format, args...)}
}
