package dtos

// APIResponse is the standard envelope for all JSON responses.
type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	ResponseTime string `json:"response_time,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// ConnectURLResponse carries the upstream authorize URL for the client to
// redirect to.
type ConnectURLResponse struct {
	AuthorizeURL string `json:"authorize_url"`
	State        string `json:"state"`
}

// ConnectionStatusResponse is the read-side view of a user's connection.
// Credentials never appear here.
type ConnectionStatusResponse struct {
	Connected    bool    `json:"connected"`
	PelagicEmail string  `json:"pelagic_email,omitempty"`
	Scopes       string  `json:"scopes,omitempty"`
	LastSyncAt   *string `json:"last_sync_at,omitempty"`
}
