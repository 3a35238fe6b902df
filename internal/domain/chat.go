package domain

// Role tags a conversation message with its author.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is the provider-agnostic conversation turn shape used by the
// orchestrator and the model integrations.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Part holds exactly one of text, a tool call emitted by the model, or a tool
// result fed back to it.
type Part struct {
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"toolCall,omitempty"`
	ToolResult *ToolResult `json:"toolResult,omitempty"`
	// Signature is an opaque provider token that must be replayed with the
	// part it arrived on.
	Signature []byte `json:"signature,omitempty"`
}

// ToolCall is a model request to invoke a named tool.
// ID is only populated by providers that correlate calls and results.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the payload returned to the model for a ToolCall. Payload is
// either the collaborator's answer or an {"error": "..."} object.
type ToolResult struct {
	CallID  string         `json:"callId,omitempty"`
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// TextMessage builds a single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// GenerateRequest is one model invocation: the full conversation so far plus
// the tools the model may call.
type GenerateRequest struct {
	Contents []Message
	Tools    []ToolDeclaration
}

// GenerateResponse is the normalized result of a model invocation.
type GenerateResponse struct {
	Text      string
	ToolCalls []ToolCall
	// Content is the model's own turn, replayed into the conversation when a
	// tool call is answered. Nil when the provider returned no candidate.
	Content *Message
}
