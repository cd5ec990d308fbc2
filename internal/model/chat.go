package model

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of a per-document transcript. Turns are appended
// in occurrence order and never mutated or removed.
type ChatTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
