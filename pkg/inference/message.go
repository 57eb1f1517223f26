package inference

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a chat completion request or response.
// Assistant messages may carry ToolCalls; tool messages answer one of
// them through ToolCallID.
type Message struct {
	Role       Role
	Content    string
	Name       string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// Tool is a function the model may call. Parameters is a JSON Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolMessage answers the tool call toolCallID with content.
func NewToolMessage(toolCallID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Name: name, Content: content}
}

func NewTool(name, description string, parameters map[string]any) Tool {
	return Tool{Name: name, Description: description, Parameters: parameters}
}

// wire renders m in the chat completions format. An assistant message
// that only calls tools sends a null content.
func (m Message) wire() map[string]any {
	out := map[string]any{"role": string(m.Role), "content": m.Content}
	if m.Name != "" && m.Role != RoleTool {
		out["name"] = m.Name
	}
	if m.ToolCallID != "" {
		out["tool_call_id"] = m.ToolCallID
	}
	if len(m.ToolCalls) == 0 {
		return out
	}
	calls := make([]map[string]any, len(m.ToolCalls))
	for i, tc := range m.ToolCalls {
		calls[i] = map[string]any{
			"id":       tc.ID,
			"type":     "function",
			"function": map[string]string{"name": tc.Name, "arguments": tc.Arguments},
		}
	}
	out["tool_calls"] = calls
	if m.Content == "" {
		out["content"] = nil
	}
	return out
}

func (t Tool) wire() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		},
	}
}
