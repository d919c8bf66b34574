package openrouter

import (
	"strings"

	"search-agent/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

// assistantMessage builds the entity form of a reply. Block order is
// reasoning, text, then one tool-use block per call.
func assistantMessage(text, reasoning string, calls []entity.ToolCall) entity.Message {
	msg := entity.Message{Role: entity.RoleAssistant, Content: text}
	if reasoning != "" {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:     entity.ContentTypeThinking,
			Thinking: reasoning,
		})
	}
	if text != "" {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type: entity.ContentTypeText,
			Text: text,
		})
	}
	if len(calls) > 0 {
		msg.ToolCalls = append([]entity.ToolCall(nil), calls...)
	}
	for i := range msg.ToolCalls {
		msg.ContentBlocks = append(msg.ContentBlocks, entity.ContentBlock{
			Type:    entity.ContentTypeToolUse,
			ToolUse: &msg.ToolCalls[i],
		})
	}
	return msg
}

func toEntityCalls(calls []openai.ToolCall) []entity.ToolCall {
	out := make([]entity.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

// convertMessages maps the conversation onto the chat completions schema.
// Reasoning is not sent back; providers reject or ignore it on input.
func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    messageText(msg),
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, m)
	}
	return out
}

func messageText(msg entity.Message) string {
	var sb strings.Builder
	for _, b := range msg.ContentBlocks {
		if b.Type == entity.ContentTypeText {
			sb.WriteString(b.Text)
		}
	}
	if sb.Len() == 0 {
		return msg.Content
	}
	return sb.String()
}

func convertTools(tools []entity.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
