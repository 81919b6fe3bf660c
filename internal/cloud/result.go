package cloud

import "fmt"

// Result is the outcome of a single remote operation.
// Transport and protocol errors never escape the client; they become
// a failed Result carrying the reason.
type Result struct {
	// OK is true when the API accepted the request.
	OK bool `json:"ok"`

	// Status is the HTTP status code, or 0 when no response was received.
	Status int `json:"status,omitempty"`

	// Reason describes the failure. Empty on success.
	Reason string `json:"reason,omitempty"`
}

// Success returns a successful Result.
func Success(status int) Result {
	return Result{OK: true, Status: status}
}

// Failure returns a failed Result with a formatted reason.
func Failure(status int, format string, args ...any) Result {
	return Result{Status: status, Reason: fmt.Sprintf(format, args...)}
}

func (r Result) String() string {
	if r.OK {
		return fmt.Sprintf("ok (%d)", r.Status)
	}
	return "failed: " + r.Reason
}
