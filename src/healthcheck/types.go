package healthcheck

type HealthCheckResponse struct {
	Name           string `json:"name"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

type Report struct {
	Healthy bool                  `json:"healthy"`
	Checks  []HealthCheckResponse `json:"checks"`
}
