package assistant

// MessageRequest is the body of POST /v1/assistant/messages
type MessageRequest struct {
	Message string `json:"message"`
}

// Action is a suggested follow-up. "navigate:<path>" actions point the
// client at a page; anything else is a message the user can send back.
type Action struct {
	Label  string `json:"label" yaml:"label"`
	Action string `json:"action" yaml:"action"`
}

// Reply is the assistant's answer
type Reply struct {
	Reply   string   `json:"reply"`
	Actions []Action `json:"actions"`
}
