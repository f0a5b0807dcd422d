// Package export renders a catalog's tool specifications into the
// wire formats the major LLM providers expect. Exports are pure reads:
// they never mutate the catalog and skip disabled tools.
package export

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go"

	"github.com/skyyrose/toolgate/pkg/catalog"
)

// OpenAIFunctions converts enabled tools to OpenAI function-calling params.
func OpenAIFunctions(cat *catalog.Catalog) []openai.ChatCompletionToolParam {
	specs := cat.ListEnabled()
	tools := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(spec.JSONSchema()),
			},
		})
	}
	return tools
}

// AnthropicTools converts enabled tools to Anthropic tool params.
func AnthropicTools(cat *catalog.Catalog) []anthropic.ToolUnionParam {
	specs := cat.ListEnabled()
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		schema := spec.JSONSchema()

		toolParam := anthropic.ToolParam{
			Name:        spec.Name,
			Description: anthropic.String(spec.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
			},
		}
		switch required := schema["required"].(type) {
		case []string:
			toolParam.InputSchema.Required = required
		case []interface{}:
			names := make([]string, 0, len(required))
			for _, v := range required {
				if s, ok := v.(string); ok {
					names = append(names, s)
				}
			}
			toolParam.InputSchema.Required = names
		}

		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return tools
}

// AnthropicRaw renders enabled tools as plain maps in Anthropic's tool
// format, carrying catalog metadata the typed SDK params cannot express.
func AnthropicRaw(cat *catalog.Catalog) []map[string]interface{} {
	specs := cat.ListEnabled()
	tools := make([]map[string]interface{}, 0, len(specs))
	for _, spec := range specs {
		tool := map[string]interface{}{
			"name":         spec.Name,
			"description":  spec.Description,
			"input_schema": spec.JSONSchema(),
		}
		if spec.RiskTier.ReadOnly() {
			tool["defer_loading"] = true
		}
		if len(spec.AllowedCallers) > 0 {
			tool["allowed_callers"] = spec.AllowedCallers
		}
		if len(spec.Examples) > 0 {
			tool["input_examples"] = spec.Examples
		}
		tools = append(tools, tool)
	}
	return tools
}

// MCPTools converts enabled tools to MCP tool definitions with behavior
// hints derived from each tool's risk tier.
func MCPTools(cat *catalog.Catalog) ([]mcp.Tool, error) {
	specs := cat.ListEnabled()
	tools := make([]mcp.Tool, 0, len(specs))
	for _, spec := range specs {
		schemaJSON, err := json.Marshal(spec.JSONSchema())
		if err != nil {
			return nil, err
		}

		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, schemaJSON)
		tool.Annotations = mcp.ToolAnnotation{
			Title:           spec.Name,
			ReadOnlyHint:    mcp.ToBoolPtr(spec.RiskTier.ReadOnly()),
			DestructiveHint: mcp.ToBoolPtr(spec.RiskTier.Destructive()),
			IdempotentHint:  mcp.ToBoolPtr(spec.Idempotent),
		}
		tools = append(tools, tool)
	}
	return tools, nil
}
