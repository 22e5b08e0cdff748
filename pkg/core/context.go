package core

// Event is a client interaction as recorded by test harnesses.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}
