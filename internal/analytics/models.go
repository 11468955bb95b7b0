package analytics

const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// Stats is the dashboard summary shown to administrators.
type Stats struct {
	Total         int            `json:"total"`
	Pending       int            `json:"pending"`
	Investigating int            `json:"investigating"`
	InProgress    int            `json:"in_progress"`
	Resolved      int            `json:"resolved"`
	HighPriority  int            `json:"high_priority"`
	Emergencies   int            `json:"emergencies"`
	ByType        map[string]int `json:"by_type"`
	ByPriority    map[string]int `json:"by_priority"`
}

// Export is a rendered listing ready to be sent as an attachment.
type Export struct {
	Data        []byte
	ContentType string
	Filename    string
}
