package langchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/tools"
)

var _ tools.Tool = (*toolAdapter)(nil)

// toolAdapter exposes a registry tool to the text-protocol executor. Tool
// failures are returned as observations so the executor keeps going.
type toolAdapter struct {
	tool     output.ToolPort
	logger   output.LoggerPort
	progress output.ProgressPort
}

func (t *toolAdapter) Name() string {
	return t.tool.Name().String()
}

func (t *toolAdapter) Description() string {
	return fmt.Sprintf("%s Action Input: the %s as plain text, or a JSON object of arguments.",
		t.tool.Description(), t.tool.Name().PrimaryArgument())
}

func (t *toolAdapter) Call(ctx context.Context, input string) (string, error) {
	name := t.Name()
	args := toArguments(t.tool.Name().PrimaryArgument(), input)

	if t.progress != nil {
		t.progress.ShowToolStart(ctx, name, args)
	}
	t.logger.Info("Executing tool", "name", name, "args", args)

	result, err := t.tool.Execute(ctx, args)
	isError := err != nil
	if isError {
		t.logger.Error("Tool execution failed", "name", name, "error", err)
		result = "Error: " + err.Error()
	} else {
		result = entity.ClipObservation(result)
	}

	if t.progress != nil {
		t.progress.ShowToolResult(ctx, name, result, isError)
	}
	return result, nil
}

// toArguments converts a raw action input into the tool's JSON arguments.
// A JSON object passes through; anything else fills the primary argument.
func toArguments(primary, input string) string {
	input = strings.TrimSpace(input)
	input = strings.Trim(input, "`")
	input = strings.TrimSpace(strings.TrimPrefix(input, "json\n"))

	if strings.HasPrefix(input, "{") && json.Valid([]byte(input)) {
		return input
	}
	if strings.HasPrefix(input, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(input), &unquoted); err == nil {
			input = unquoted
		}
	}

	data, _ := json.Marshal(map[string]string{primary: input})
	return string(data)
}
