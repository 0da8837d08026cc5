package mcp

// ToolDefinition describes a callable tool
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	// ReadOnly marks tools that never write.
	ReadOnly bool `json:"-"`
}

// ToolsListResult represents the tools/list response
type ToolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// ToolCallParams represents the tools/call request parameters
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Tools returns the tool catalog served by NewServer.
func Tools() []ToolDefinition {
	return buildToolCatalog()
}
