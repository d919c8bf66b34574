package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.ProgressPort = (*ConsolePresenter)(nil)

const bannerWidth = 60

var resultLinePattern = regexp.MustCompile(`(?m)^\d+\. `)

type ConsolePresenter struct {
	out io.Writer
}

func NewConsolePresenter(out io.Writer) *ConsolePresenter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsolePresenter{out: out}
}

func (p *ConsolePresenter) ShowBanner(query string) {
	bold := color.New(color.FgCyan, color.Bold)
	rule := strings.Repeat("=", bannerWidth)
	bold.Fprintln(p.out, rule)
	bold.Fprintln(p.out, "Search Agent")
	bold.Fprintln(p.out, rule)
	fmt.Fprintf(p.out, "Query: %s\n", query)
}

func (p *ConsolePresenter) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(p.out, "\n━━━ Iteration %d/%d ━━━\n", iteration, maxIterations)
}

func (p *ConsolePresenter) ShowThinking(ctx context.Context, content string) {
	if content == "" {
		return
	}

	blue := color.New(color.FgBlue)
	blue.Fprint(p.out, "\n💭 Thinking: ")

	dim := color.New(color.Faint)
	dim.Fprintln(p.out, truncate(content, 500))
}

func (p *ConsolePresenter) ShowToolStart(ctx context.Context, toolName, arguments string) {
	icon, name := toolDisplay(toolName)

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(p.out, "\n%s %s\n", icon, name)

	if summary := formatToolArguments(toolName, arguments); summary != "" {
		dim := color.New(color.Faint)
		dim.Fprintf(p.out, "   %s\n", summary)
	}
}

func (p *ConsolePresenter) ShowToolResult(ctx context.Context, toolName, result string, isError bool) {
	if isError {
		red := color.New(color.FgRed)
		red.Fprint(p.out, "❌ Error: ")

		dim := color.New(color.Faint)
		dim.Fprintln(p.out, truncate(result, 300))
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(p.out, "✓ %s\n", formatToolResult(toolName, result))
}

func (p *ConsolePresenter) ShowResult(outcome *entity.SearchOutcome) {
	bold := color.New(color.Bold)
	rule := strings.Repeat("-", bannerWidth)

	fmt.Fprintln(p.out)
	bold.Fprintln(p.out, "Answer")
	fmt.Fprintln(p.out, rule)
	fmt.Fprintln(p.out, outcome.Result.Answer)

	fmt.Fprintln(p.out)
	bold.Fprintln(p.out, "Sources")
	fmt.Fprintln(p.out, rule)
	if len(outcome.Result.Sources) == 0 {
		dim := color.New(color.Faint)
		dim.Fprintln(p.out, "(none)")
	}
	for i, s := range outcome.Result.Sources {
		fmt.Fprintf(p.out, "%d. %s\n   %s\n", i+1, s.Title, s.URL)
	}

	green := color.New(color.FgGreen)
	fmt.Fprintln(p.out)
	green.Fprintf(p.out, "✓ %d source(s), %d iteration(s), via %s", len(outcome.Result.Sources), outcome.Iterations, outcome.Path)
	if outcome.Reformatted {
		fmt.Fprint(p.out, " (reformatted)")
	}
	if outcome.Dropped > 0 {
		fmt.Fprintf(p.out, ", %d source(s) dropped", outcome.Dropped)
	}
	fmt.Fprintln(p.out)
}

// classifiedFailure is implemented by errors that name a failure kind and
// keep the text that caused them, such as extraction failures.
type classifiedFailure interface {
	error
	FailureKind() string
	RawText() string
}

// ShowFailure prints err and, for classified failures, the raw answer that
// could not be structured.
func (p *ConsolePresenter) ShowFailure(err error) {
	red := color.New(color.FgRed, color.Bold)
	var failure classifiedFailure
	if errors.As(err, &failure) {
		red.Fprintf(p.out, "\n❌ Could not structure the answer (%s)\n", failure.FailureKind())
		fmt.Fprintln(p.out, err)
		if raw := failure.RawText(); raw != "" {
			dim := color.New(color.Faint)
			fmt.Fprintln(p.out, "\nRaw answer:")
			dim.Fprintln(p.out, raw)
		}
		return
	}
	red.Fprintf(p.out, "\n❌ Search failed: %v\n", err)
}

func toolDisplay(toolName string) (string, string) {
	displays := map[entity.ToolName][2]string{
		entity.ToolWebSearch: {"🔎", "Web search"},
		entity.ToolFetchPage: {"🌐", "Fetch page"},
	}

	if display, ok := displays[entity.ToolName(toolName)]; ok {
		return display[0], display[1]
	}
	return "🔧", toolName
}

func formatToolArguments(toolName, arguments string) string {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return ""
	}

	switch entity.ToolName(toolName) {
	case entity.ToolWebSearch:
		if query, ok := args["query"].(string); ok {
			return fmt.Sprintf("Query: %s", truncate(query, 80))
		}
	case entity.ToolFetchPage:
		if url, ok := args["url"].(string); ok {
			return fmt.Sprintf("URL: %s", url)
		}
	}

	return ""
}

func formatToolResult(toolName, result string) string {
	switch entity.ToolName(toolName) {
	case entity.ToolWebSearch:
		if n := len(resultLinePattern.FindAllString(result, -1)); n > 0 {
			return fmt.Sprintf("%d result(s)", n)
		}
	case entity.ToolFetchPage:
		first, _, _ := strings.Cut(result, "\n")
		if strings.HasPrefix(first, "Title: ") {
			return truncate(first, 100)
		}
	}

	return truncate(result, 100)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
