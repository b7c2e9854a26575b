package probe

import "time"

// Kind identifies which of the two probes produced a result.
type Kind string

const (
	KindHealth     Kind = "health"
	KindFunctional Kind = "functional"
)

// ErrorKind classifies why a probe failed.
type ErrorKind string

const (
	ErrNone    ErrorKind = ""
	ErrNetwork ErrorKind = "NetworkError"
	ErrHTTP    ErrorKind = "HTTPError"
	ErrParse   ErrorKind = "ParseError"
	ErrTimeout ErrorKind = "Timeout"
)

// Result is the settled outcome of a single probe against one endpoint.
type Result struct {
	Endpoint   string
	Probe      Kind
	Success    bool
	StatusCode int
	Error      ErrorKind
	Detail     string
	Snippet    string
	Body       string
	Duration   time.Duration
	CheckedAt  time.Time
}

// Status renders the outcome as PASS or FAIL.
func (r Result) Status() string {
	if r.Success {
		return "PASS"
	}
	return "FAIL"
}
