package deploy

import "errors"

// Error kinds returned by the orchestrator. All of them abort the run.
var (
	ErrToolNotFound      = errors.New("ToolNotFound")
	ErrAuthRequired      = errors.New("AuthRequired")
	ErrConfigWriteFailed = errors.New("ConfigWriteFailed")
	ErrDeployFailed      = errors.New("DeployFailed")
	ErrRecordWriteFailed = errors.New("RecordWriteFailed")
)

// Error is a fatal orchestrator failure. Output carries the deploy tool's
// captured output verbatim when there is any.
type Error struct {
	Kind   error
	Msg    string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error() + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
