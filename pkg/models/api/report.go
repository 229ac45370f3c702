package api

// Column describes a reportable column for the builder UI.
type Column struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Summable bool   `json:"summable"`
}

// Filter is one predicate of a report request. Values are interpreted by
// operator: one scalar for equals, a non-empty list for in, [from, to] for
// between. Date scalars travel as "2006-01-02" strings.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Values   []any  `json:"values"`
}

// Sort is the single active sort key of a report request.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// ReportRequest is the wire shape of a report configuration.
type ReportRequest struct {
	ReportType     string   `json:"reportType"`
	Columns        []string `json:"columns"`
	Filters        []Filter `json:"filters"`
	Sort           *Sort    `json:"sort,omitempty"`
	IncludeSummary bool     `json:"includeSummary"`
	// SessionID scopes preview staleness tracking; previews sharing a
	// session id supersede each other.
	SessionID string `json:"sessionId,omitempty"`
}

// PreviewResponse carries the capped on-screen result set. Rows map column
// id to a JSON-friendly value (dates as "2006-01-02" strings, missing values
// as null). TotalRows is the uncapped count.
type PreviewResponse struct {
	Columns   []Column         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Summary   map[string]any   `json:"summary,omitempty"`
	TotalRows int              `json:"totalRows"`
	Truncated bool             `json:"truncated"`
}

// SaveTemplateRequest persists the embedded configuration under a name.
type SaveTemplateRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedBy   string        `json:"createdBy"`
	Config      ReportRequest `json:"config"`
}

// Template is the API shape of a saved template.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ReportType  string `json:"reportType"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
	IsSystem    bool   `json:"isSystem"`
}

// LoadTemplateResponse returns a template's configuration ready to run.
// DroppedColumns lists ids the template referenced that no longer exist in
// the registry.
type LoadTemplateResponse struct {
	Template       Template      `json:"template"`
	Config         ReportRequest `json:"config"`
	DroppedColumns []string      `json:"droppedColumns,omitempty"`
}

// WorkRecord is the operational CRUD shape of a tracked work record.
type WorkRecord struct {
	ID           int64    `json:"id,omitempty"`
	WorkDate     string   `json:"workDate"`
	VehicleID    *int64   `json:"vehicleId,omitempty"`
	RateConfigID *int64   `json:"rateConfigId,omitempty"`
	LocationID   *int64   `json:"locationId,omitempty"`
	EmployeeID   *int64   `json:"employeeId,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty"`
	TotalRevenue *float64 `json:"totalRevenue,omitempty"`
	FuelCost     *float64 `json:"fuelCost,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
}

// Error is the uniform error envelope of the API.
type Error struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
