package prompts

import (
	_ "embed"
)

//go:embed system.txt
var SystemPrompt string

//go:embed reformat.txt
var ReformatPrompt string
