// Package opensearch is a placeholder for the raw log search backend. It is
// declared as a data source so classifications can require it, but every
// query reports a typed not-implemented payload instead of data.
package opensearch

// Status is the payload returned for any OpenSearch request.
type Status struct {
	DataSource string `json:"data_source"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// NotImplemented is what the orchestrator attaches when a classification
// asks for log search.
func NotImplemented() Status {
	return Status{
		DataSource: "opensearch",
		Status:     "not_implemented",
		Message:    "log search backend is not implemented yet",
	}
}
