package prompts

import (
	"bytes"
	"text/template"

	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
)

type ToolInfo struct {
	Name        string
	Description string
}

type PromptData struct {
	Tools   []ToolInfo
	Example string
}

// ExampleResult is the record shown to the model as the expected final
// block. Callers render it with the same formatter the extractor reads.
var ExampleResult = entity.StructuredResult{
	Answer: "The three highest-ranked Indian batters are Shubman Gill (1st), Rohit Sharma (2nd) and Virat Kohli (4th).",
	Sources: []entity.Source{
		{Title: "ICC Men's ODI Batting Rankings", URL: "https://www.icc-cricket.com/rankings/batting/mens/odi"},
	},
}

// GenerateSystemPrompt renders the agent prompt with the registered tools,
// in registry order, and the rendered example block.
func GenerateSystemPrompt(baseTemplate string, tools output.ToolRegistry, example string) (string, error) {
	registered := tools.All()
	infos := make([]ToolInfo, 0, len(registered))
	for _, t := range registered {
		infos = append(infos, ToolInfo{
			Name:        t.Name().String(),
			Description: t.Description(),
		})
	}

	return render("system", baseTemplate, PromptData{
		Tools:   infos,
		Example: example,
	})
}

func GenerateReformatPrompt(baseTemplate, example string) (string, error) {
	return render("reformat", baseTemplate, PromptData{Example: example})
}

func render(name, baseTemplate string, data PromptData) (string, error) {
	tmpl, err := template.New(name).Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
