package schema

import (
	"context"
	"encoding/json"
)

// ToolDescriptor describes one tool exposed by the tool server. InputSchema
// is kept as the raw JSON-schema object exactly as the server sent it, so the
// catalog listed over HTTP is byte-for-byte the schema forwarded to the model.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ModelResponse is the gateway's normalized view of one model completion:
// a non-empty ordered sequence of content blocks.
type ModelResponse struct {
	Blocks     []ContentBlock
	StopReason string
}

// Gateway sends a full transcript plus the tool catalog to the model and
// returns the normalized response. Implementations are stateless between
// calls and never retry.
type Gateway interface {
	Complete(ctx context.Context, transcript []Message, catalog []ToolDescriptor) (ModelResponse, error)
}

// ToolRunner exposes the tool server session: the cached catalog and a
// stateless single-call operation. Safe for concurrent use.
type ToolRunner interface {
	Tools() ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)
}
