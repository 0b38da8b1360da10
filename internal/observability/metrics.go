package observability

const (
	MDispatchRequests        MetricKey = "dispatch_requests_total"
	MDispatchDuration        MetricKey = "dispatch_duration_seconds"
	MProviderRequests        MetricKey = "provider_requests_total"
	MProviderRequestDuration MetricKey = "provider_request_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
)
