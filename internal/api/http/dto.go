package http

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse reports live counts for operators.
type StatsResponse struct {
	OpenSessions int `json:"open_sessions"`
	Connections  int `json:"connections"`
}
