package entity

// SearchOutcome is what a completed search hands back to its caller.
type SearchOutcome struct {
	RunID       string           `json:"run_id"`
	Result      StructuredResult `json:"result"`
	Iterations  int              `json:"iterations"`
	Steps       []AgentStep      `json:"steps"`
	Path        string           `json:"path"`
	Dropped     int              `json:"dropped"`
	Reformatted bool             `json:"reformatted"`
}
