package entity

type ToolName string

// The tool set is closed: registries refuse any name not listed here.
const (
	ToolWebSearch ToolName = "web_search"
	ToolFetchPage ToolName = "fetch_page"
)

var knownTools = map[ToolName]string{
	ToolWebSearch: "query",
	ToolFetchPage: "url",
}

func (t ToolName) String() string {
	return string(t)
}

// Valid reports whether t belongs to the closed tool set.
func (t ToolName) Valid() bool {
	_, ok := knownTools[t]
	return ok
}

// PrimaryArgument is the argument a text-protocol agent fills with its raw
// action input.
func (t ToolName) PrimaryArgument() string {
	return knownTools[t]
}
