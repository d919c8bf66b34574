package extractor

import (
	"encoding/json"
	"strings"

	"search-agent/internal/domain/entity"
)

// FormatBlock renders res as a ```json fenced block that Extract reads back
// to an equal result. Backticks are escaped so the fence cannot close early.
func FormatBlock(res entity.StructuredResult) string {
	if res.Sources == nil {
		res.Sources = []entity.Source{}
	}
	data, _ := json.MarshalIndent(res, "", "  ")
	body := strings.ReplaceAll(string(data), "`", "\\u0060")
	return "```json\n" + body + "\n```"
}
