package models

// WebSocket message types
const WSHistoryUpdated = "history_updated"

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// HistoryUpdate tells a subscriber that its conversation changed and should
// be re-read. State is the last pipeline state the send reached.
type HistoryUpdate struct {
	UserID   string `json:"user_id"`
	ModelTag string `json:"model_tag"`
	State    string `json:"state"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
