package store

import "time"

// ReportTemplate is the persisted shape of a saved report configuration.
// Config is an opaque serialized blob owned exclusively by the template
// service; the store never inspects it.
type ReportTemplate struct {
	ID          string
	Name        string
	Description string
	ReportType  string
	Config      []byte
	CreatedBy   string
	CreatedAt   time.Time
	IsSystem    bool
}
