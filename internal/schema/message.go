// Package schema defines the conversation data model shared by the tool
// client, the model gateway, the loop, and the HTTP façade.
package schema

import (
	"encoding/json"
	"fmt"
)

// Block type tags. These match the Anthropic Messages API wire format, which
// is also the normalized shape persisted to conversation logs.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentBlock is one block of structured message content.
//
// Exactly one shape is populated depending on Type:
//   - text:        Text
//   - tool_use:    ID, Name, Input (model-emitted invocation request)
//   - tool_result: ToolUseID, Content (raw structured result from the tool server)
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// Message is one entry in a transcript. Content is either a plain string or
// an ordered []ContentBlock and serializes accordingly. Messages are
// immutable once appended; a transcript only grows.
type Message struct {
	Role    string
	Content any // string | []ContentBlock
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

func NewAssistantBlocks(blocks []ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// NewToolResultMessage wraps a tool result in a user-role message, correlated
// to the requesting tool_use block by id.
func NewToolResultMessage(toolUseID string, content json.RawMessage) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentBlock{{
			Type:      BlockToolResult,
			ToolUseID: toolUseID,
			Content:   content,
		}},
	}
}

// Blocks returns the message content as a block list. Plain string content is
// promoted to a single text block.
func (m Message) Blocks() []ContentBlock {
	switch c := m.Content.(type) {
	case string:
		return []ContentBlock{{Type: BlockText, Text: c}}
	case []ContentBlock:
		return c
	}
	return nil
}

// Text returns the plain string content, or "" when content is structured.
func (m Message) Text() string {
	s, _ := m.Content.(string)
	return s
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}{Role: m.Role, Content: m.Content})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role

	if len(raw.Content) == 0 {
		m.Content = ""
		return nil
	}
	switch raw.Content[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw.Content, &s); err != nil {
			return err
		}
		m.Content = s
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(raw.Content, &blocks); err != nil {
			return err
		}
		m.Content = blocks
	default:
		return fmt.Errorf("message content must be a string or a block array")
	}
	return nil
}

// CloneTranscript returns a copy of msgs with an independent backing slice.
func CloneTranscript(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// HasToolUse reports whether any block is a tool-invocation request.
func HasToolUse(blocks []ContentBlock) bool {
	for _, b := range blocks {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}
