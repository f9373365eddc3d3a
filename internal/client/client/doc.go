// Package client talks to the document search/answer backend.
//
// # Overview
//
// Gateway performs one JSON POST per call and normalises every way it can
// go wrong into an Outcome:
//
//   - transport failure (DNS, TLS, refused, reset)  -> Failure{Kind: KindNetwork}
//   - non-2xx status                                -> Failure{Kind: KindHTTP, Status}
//   - 2xx with a body that is not JSON              -> success with payload "{}"
//
// Send also reports the outcome to the status channel; Exchange does not,
// so that composite operations can word their own status.
//
// # Error Handling
//
// *Failure implements error and unwraps to one of the sentinels ErrNetwork,
// ErrHTTP, ErrParse (match with errors.Is) plus the underlying cause.
// Error response bodies are logged for diagnostics and kept in
// Failure.Body; they are never treated as payload.
package client
