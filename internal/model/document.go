package model

// ProcessingStatus is the server-side lifecycle of an uploaded document.
// The client only ever observes it; transitions happen on the server.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusDone       ProcessingStatus = "done"
	StatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether no further server-side change is expected
// without an explicit reprocess.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// InProgress reports whether the status is worth polling.
func (s ProcessingStatus) InProgress() bool {
	return s == StatusPending || s == StatusProcessing
}

type Document struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	FileURL          string           `json:"file_url"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ProcessingError  string           `json:"processing_error,omitempty"`
}

// Chunk is one derived text segment of a processed document. The server
// also sends id/order/page_number; only the text matters to the client.
type Chunk struct {
	ID         int64  `json:"id,omitempty"`
	Text       string `json:"chunk_text"`
	Order      int    `json:"order,omitempty"`
	PageNumber *int   `json:"page_number,omitempty"`
}
