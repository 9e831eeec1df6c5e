package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ServiceMetrics is returned by GET /v1/metrics/service.
type ServiceMetrics struct {
	TransactionsRecorded int64   `json:"transactionsRecorded"`
	TransactionsImported int64   `json:"transactionsImported"`
	TransactionsDeleted  int64   `json:"transactionsDeleted"`
	LoginFailures        int64   `json:"loginFailures"`
	SummaryCacheHitRate  float64 `json:"summaryCacheHitRate"`
	AvgSummaryLatencyMs  float64 `json:"avgSummaryLatencyMs"`
	EventsPublished      int64   `json:"eventsPublished"`
	EventsFailed         int64   `json:"eventsFailed"`
	Period               string  `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
