package llm

// Usage tracks token consumption across decision-model calls within one run.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TotalTokens returns the total number of tokens used
func (u *Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage report into this one
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
