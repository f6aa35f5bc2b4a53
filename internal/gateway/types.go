package gateway

import "github.com/castora/creatormatch-go/internal/domain"

const JobTypeDiscover = "discover"

// Job is one unit of work pushed to a worker over the WebSocket.
type Job struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id"`
	Discover  *DiscoverRequest `json:"discover,omitempty"`
}

// DiscoverRequest carries the campaign criteria for one discovery run.
// Budget bounds are accepted for forward compatibility but do not affect
// ranking.
type DiscoverRequest struct {
	CampaignID  string   `json:"campaign_id,omitempty"`
	Niche       string   `json:"niche"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description,omitempty"`
	BudgetMin   *float64 `json:"budget_min,omitempty"`
	BudgetMax   *float64 `json:"budget_max,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// RegisterRequest announces the worker to the gateway after connecting.
type RegisterRequest struct {
	Type     string `json:"type"`
	WorkerID string `json:"worker_id"`
}

// DiscoverResult is posted back to the platform when a job finishes. A
// failed job carries an Error string and an empty match list.
type DiscoverResult struct {
	RequestID string               `json:"request_id"`
	WorkerID  string               `json:"worker_id"`
	Matches   []domain.ScoredMatch `json:"matches"`
	Error     string               `json:"error,omitempty"`
	ElapsedMs int64                `json:"elapsed_ms"`
}

type WebSocketState string

const (
	WSStateConnecting   WebSocketState = "CONNECTING"
	WSStateConnected    WebSocketState = "CONNECTED"
	WSStateDisconnected WebSocketState = "DISCONNECTED"
	WSStateReconnecting WebSocketState = "RECONNECTING"
	WSStateFailed       WebSocketState = "FAILED"
)

func (s WebSocketState) String() string {
	return string(s)
}
