package prompts

import (
	"context"
	"strings"
	"testing"

	"search-agent/internal/application/service"
	"search-agent/internal/domain/entity"
)

const testExample = "```json\n{\"answer\": \"example\", \"sources\": []}\n```"

type mockTool struct {
	name        entity.ToolName
	description string
}

func (m *mockTool) Name() entity.ToolName { return m.name }
func (m *mockTool) Description() string   { return m.description }
func (m *mockTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (m *mockTool) Execute(ctx context.Context, arguments string) (string, error) {
	return "", nil
}

func TestGenerateSystemPrompt(t *testing.T) {
	registry := service.NewToolRegistry()
	_ = registry.Register(&mockTool{name: entity.ToolWebSearch, description: "Search the web"})
	_ = registry.Register(&mockTool{name: entity.ToolFetchPage, description: "Read a page"})

	result, err := GenerateSystemPrompt(SystemPrompt, registry, testExample)
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.Contains(result, "- fetch_page: Read a page\n- web_search: Search the web\n") {
		t.Errorf("Result should list tools in name order, got:\n%s", result)
	}

	if strings.Contains(result, "{{") {
		t.Error("Result should not contain template actions")
	}

	if !strings.Contains(result, testExample) {
		t.Errorf("Result should contain the example block, got:\n%s", result)
	}
}

func TestGenerateSystemPromptEmptyRegistry(t *testing.T) {
	result, err := GenerateSystemPrompt(SystemPrompt, service.NewToolRegistry(), testExample)
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.Contains(result, "web research assistant") {
		t.Error("Result should contain base template text")
	}
}

func TestGenerateReformatPrompt(t *testing.T) {
	result, err := GenerateReformatPrompt(ReformatPrompt, testExample)
	if err != nil {
		t.Fatalf("GenerateReformatPrompt failed: %v", err)
	}

	if !strings.Contains(result, testExample) {
		t.Error("Result should contain the example block")
	}
	if !strings.Contains(result, "Reply with the block only.") {
		t.Error("Result should contain base template text")
	}
}

func TestGeneratePromptInvalidTemplate(t *testing.T) {
	_, err := GenerateSystemPrompt(`Test {{.InvalidField}}`, service.NewToolRegistry(), "")
	if err == nil {
		t.Error("Expected error for invalid template, got nil")
	}

	_, err = GenerateReformatPrompt(`Test {{range}}`, "")
	if err == nil {
		t.Error("Expected error for malformed template, got nil")
	}
}
