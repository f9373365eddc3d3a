package client

import (
	"encoding/json"
	"fmt"
)

// FailureKind names the way an exchange went wrong.
type FailureKind int

const (
	// KindNetwork: no response was obtained (DNS, TLS, refused, reset).
	KindNetwork FailureKind = iota + 1
	// KindHTTP: a response arrived with a non-2xx status.
	KindHTTP
	// KindParse: a response arrived but lacks what the caller needs.
	KindParse
)

func (k FailureKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Phase tags where in a multi-step operation a failure happened.
type Phase string

const (
	PhaseRequest           Phase = "request"
	PhaseAwaitingUploadURL Phase = "awaiting_upload_url"
	PhaseTransferring      Phase = "transferring"
)

// Failure is the error half of an Outcome.
type Failure struct {
	Kind   FailureKind
	Status int    // HTTP status for KindHTTP, 0 otherwise
	Phase  Phase  // which step failed
	Body   string // raw response body, kept for diagnostics only
	Cause  error  // underlying transport or decoding error, if any
}

func (f *Failure) Error() string {
	switch f.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: HTTP %d", f.Phase, f.Status)
	case KindNetwork:
		return fmt.Sprintf("%s: network error: %v", f.Phase, f.Cause)
	default:
		if f.Cause != nil {
			return fmt.Sprintf("%s: malformed response: %v", f.Phase, f.Cause)
		}
		return fmt.Sprintf("%s: malformed response", f.Phase)
	}
}

// Unwrap exposes the kind sentinel and the cause, so errors.Is(err,
// ErrNetwork) and errors.As on the transport error both work.
func (f *Failure) Unwrap() []error {
	var sentinel error
	switch f.Kind {
	case KindNetwork:
		sentinel = ErrNetwork
	case KindHTTP:
		sentinel = ErrHTTP
	default:
		sentinel = ErrParse
	}
	if f.Cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, f.Cause}
}

// Outcome is the result of one gateway exchange: either Payload (Err nil)
// or Err. Payload is always valid JSON on success; a body that did not parse
// is delivered as "{}".
type Outcome struct {
	Payload json.RawMessage
	Err     *Failure
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

func success(p json.RawMessage) Outcome {
	return Outcome{Payload: p}
}

func failure(f *Failure) Outcome {
	return Outcome{Err: f}
}
