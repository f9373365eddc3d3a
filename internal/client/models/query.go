package models

import (
	"bytes"
	"encoding/json"
)

// QueryRequest is the body of POST /search and POST /answer.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Match is a single retrieved chunk.
type Match struct {
	Score   float64 `json:"score"`
	Page    *int    `json:"page"`
	ChunkID string  `json:"chunkId"`
	Source  string  `json:"source"`
	Text    string  `json:"text"`
}

// SearchResponse is the success body of POST /search.
type SearchResponse struct {
	TopK []Match `json:"top_k"`
}

// Citation references a chunk the answer was built from.
type Citation struct {
	Score   float64 `json:"score"`
	Page    *int    `json:"page"`
	ChunkID string  `json:"chunkId"`
	Source  string  `json:"source"`
}

// AnswerResponse is the success body of POST /answer. AnswerMD is the
// polished markdown answer; AnswerRaw and Answer are plain-text fallbacks.
type AnswerResponse struct {
	AnswerMD  string     `json:"answer_md,omitempty"`
	AnswerRaw string     `json:"answer_raw,omitempty"`
	Answer    string     `json:"answer,omitempty"`
	Citations []Citation `json:"citations"`
}

// Polished reports whether the backend supplied a markdown answer.
func (a AnswerResponse) Polished() bool {
	return a.AnswerMD != ""
}

// RawText returns the best plain-text answer available.
func (a AnswerResponse) RawText() string {
	switch {
	case a.AnswerRaw != "":
		return a.AnswerRaw
	case a.Answer != "":
		return a.Answer
	default:
		return "(no answer)"
	}
}

// Decode unmarshals a gateway payload into v. Payloads that are valid JSON
// but not of the expected shape (an array, a bare string) leave v at its
// zero value and return the decoding error so the caller can log it.
func Decode(payload json.RawMessage, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
