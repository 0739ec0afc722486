// Package analysis delegates record interpretation to an external inference
// backend. No inference runs in-process; the gateway only shapes the prompt,
// ships the request and relays the summary back.
package analysis

import "context"

// Result is the outcome of one analysis call.
type Result struct {
	Summary string `json:"summary"`
	Model   string `json:"model"`
}

// Metadata describes the record being analyzed. The payload bytes travel
// separately so the gateway can decide how much of them to forward.
type Metadata struct {
	RecordID    string
	Title       string
	Description string
	MediaKind   string
	SizeBytes   int64
}

// Gateway produces a textual summary for a record's payload.
type Gateway interface {
	Analyze(ctx context.Context, meta Metadata, content []byte) (*Result, error)
}
