package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/export/xlsx"
	"github.com/fleet-tools/work-ledger/pkg/models/api"
	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	reportsvc "github.com/fleet-tools/work-ledger/pkg/services/report"
	templatesvc "github.com/fleet-tools/work-ledger/pkg/services/template"
	templatestore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/template"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Session ids are client-supplied, so the session map is bounded: entries
// idle past the TTL are dropped on access, and the least recently used gives
// way when the cap is reached.
const (
	maxSessions    = 512
	sessionIdleTTL = time.Hour
)

// Handler exposes the report builder over HTTP: column catalogs, live
// preview, spreadsheet export and template persistence.
type Handler struct {
	registry     *reportsvc.Registry
	executor     reportsvc.Executor
	templates    *templatesvc.Service
	previewLimit int

	mu         sync.Mutex
	sessions   map[string]*sessionEntry
	sessionCap int
	now        func() time.Time
}

type sessionEntry struct {
	session  *reportsvc.Session
	lastUsed time.Time
}

func NewHandler(registry *reportsvc.Registry, executor reportsvc.Executor, templates *templatesvc.Service, previewLimit int) *Handler {
	if previewLimit <= 0 {
		previewLimit = 50
	}
	return &Handler{
		registry:     registry,
		executor:     executor,
		templates:    templates,
		previewLimit: previewLimit,
		sessions:     make(map[string]*sessionEntry),
		sessionCap:   maxSessions,
		now:          time.Now,
	}
}

// ListColumns returns the column catalog for a report type.
func (h *Handler) ListColumns(w http.ResponseWriter, r *http.Request) {
	rt := domain.ReportType(chi.URLParam(r, "reportType"))
	cols, err := h.registry.Columns(rt)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err)
		return
	}

	response := make([]api.Column, 0, len(cols))
	for _, col := range cols {
		response = append(response, api.Column{
			ID:       string(col.ID),
			Label:    col.Label,
			Type:     string(col.Type),
			Required: col.Required,
			Summable: col.Summable,
		})
	}
	writeJSON(w, r, http.StatusOK, response)
}

// Preview executes a configuration and returns the capped on-screen rows.
// Requests sharing a session id supersede each other: a stale preview never
// overwrites a newer one.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req api.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	cfg, err := h.buildConfig(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	rows, err := h.session(req.SessionID).Run(r.Context(), cfg)
	if errors.Is(err, reportsvc.ErrSuperseded) {
		writeError(w, r, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	cols := h.selectedColumns(cfg)
	resp := api.PreviewResponse{
		Columns:   make([]api.Column, 0, len(cols)),
		Rows:      make([]map[string]any, 0, min(len(rows), h.previewLimit)),
		TotalRows: len(rows),
	}
	for _, col := range cols {
		resp.Columns = append(resp.Columns, api.Column{
			ID:       string(col.ID),
			Label:    col.Label,
			Type:     string(col.Type),
			Required: col.Required,
			Summable: col.Summable,
		})
	}

	// The cap applies to on-screen rows only; totals and the summary are
	// computed over the full result set.
	visible := rows
	if len(visible) > h.previewLimit {
		visible = visible[:h.previewLimit]
		resp.Truncated = true
	}
	for _, row := range visible {
		resp.Rows = append(resp.Rows, encodeRow(cols, row))
	}

	if req.IncludeSummary {
		summable := h.registry.SummableColumns(cfg)
		if len(summable) > 0 {
			resp.Summary = encodeRow(cols, reportsvc.Summarize(rows, summable))
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Export executes a configuration and streams the full result set as an
// .xlsx download. The preview cap never applies here.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req api.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	cfg, err := h.buildConfig(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	rows, err := h.executor.Execute(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	cols := h.selectedColumns(cfg)
	opts := xlsx.Options{}
	if req.IncludeSummary {
		if summable := h.registry.SummableColumns(cfg); len(summable) > 0 {
			opts.IncludeSummary = true
			opts.Summary = reportsvc.Summarize(rows, summable)
		}
	}

	data, err := xlsx.Render(cols, rows, opts)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	filename := xlsx.Filename(cfg.ReportType, "", time.Now().UTC())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to stream export")
	}
}

// SaveTemplate persists a configuration under a name.
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req api.SaveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	cfg, err := h.buildConfig(req.Config)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	tpl, err := h.templates.Save(r.Context(), cfg, req.Name, req.Description, req.CreatedBy)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, encodeTemplate(tpl))
}

// ListTemplates returns the stored templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response := make([]api.Template, 0, len(templates))
	for _, tpl := range templates {
		response = append(response, encodeTemplate(tpl))
	}
	writeJSON(w, r, http.StatusOK, response)
}

// LoadTemplate restores a template as a ready-to-run configuration,
// reporting any columns dropped by schema drift.
func (h *Handler) LoadTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	tpl, dropped, err := h.templates.Load(r.Context(), id)
	if errors.Is(err, templatestore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := api.LoadTemplateResponse{
		Template: encodeTemplate(tpl),
		Config:   encodeConfig(tpl.Config),
	}
	for _, id := range dropped {
		resp.DroppedColumns = append(resp.DroppedColumns, string(id))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// DeleteTemplate removes a non-system template.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	err := h.templates.Delete(r.Context(), id)
	if errors.Is(err, templatestore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session returns the preview session for id, creating it on first use. An
// empty id gets a one-shot session that nothing can supersede.
func (h *Handler) session(id string) *reportsvc.Session {
	if id == "" {
		return reportsvc.NewSession(h.executor)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	entry, ok := h.sessions[id]
	if !ok {
		h.evictSessions(now)
		entry = &sessionEntry{session: reportsvc.NewSession(h.executor)}
		h.sessions[id] = entry
	}
	entry.lastUsed = now
	return entry.session
}

// evictSessions drops entries idle past the TTL, then the least recently
// used until a slot is free. Called under h.mu before inserting.
func (h *Handler) evictSessions(now time.Time) {
	for id, entry := range h.sessions {
		if now.Sub(entry.lastUsed) > sessionIdleTTL {
			delete(h.sessions, id)
		}
	}
	for len(h.sessions) >= h.sessionCap {
		oldestID := ""
		var oldest time.Time
		for id, entry := range h.sessions {
			if oldestID == "" || entry.lastUsed.Before(oldest) {
				oldestID, oldest = id, entry.lastUsed
			}
		}
		delete(h.sessions, oldestID)
	}
}

// buildConfig assembles and validates a domain configuration from the wire
// shape, running every filter and the sort through the pure transforms.
func (h *Handler) buildConfig(req api.ReportRequest) (domain.ReportConfig, error) {
	cfg, err := reportsvc.Default(h.registry, domain.ReportType(req.ReportType))
	if err != nil {
		return domain.ReportConfig{}, domain.NewValidationError("reportType", "%v", err)
	}

	if len(req.Columns) > 0 {
		cfg.Columns = make([]domain.ColumnID, 0, len(req.Columns))
		for _, id := range req.Columns {
			cfg.Columns = append(cfg.Columns, domain.ColumnID(id))
		}
	}
	if err := reportsvc.Validate(h.registry, cfg); err != nil {
		return domain.ReportConfig{}, err
	}

	for _, f := range req.Filters {
		cfg, err = reportsvc.SetFilter(h.registry, cfg,
			domain.ColumnID(f.Field), domain.FilterOperator(f.Operator), f.Values...)
		if err != nil {
			return domain.ReportConfig{}, err
		}
	}
	if req.Sort != nil {
		cfg, err = reportsvc.SetSort(h.registry, cfg,
			domain.ColumnID(req.Sort.Field), domain.SortDirection(req.Sort.Direction))
		if err != nil {
			return domain.ReportConfig{}, err
		}
	}
	return cfg, nil
}

func (h *Handler) selectedColumns(cfg domain.ReportConfig) []domain.ColumnDef {
	cols := make([]domain.ColumnDef, 0, len(cfg.Columns))
	for _, id := range cfg.Columns {
		if col, ok := h.registry.Column(id); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

func encodeRow(cols []domain.ColumnDef, row domain.ResultRow) map[string]any {
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		v, ok := row[col.ID]
		if !ok || v.Null {
			out[string(col.ID)] = nil
			continue
		}
		switch v.Kind {
		case domain.ColumnDate:
			out[string(col.ID)] = v.Date.Format(dateLayout)
		case domain.ColumnNumber, domain.ColumnCurrency:
			out[string(col.ID)] = v.Num
		default:
			out[string(col.ID)] = v.Str
		}
	}
	return out
}

func encodeConfig(cfg domain.ReportConfig) api.ReportRequest {
	req := api.ReportRequest{
		ReportType: string(cfg.ReportType),
		Columns:    make([]string, len(cfg.Columns)),
		Sort: &api.Sort{
			Field:     string(cfg.Sorting.Field),
			Direction: string(cfg.Sorting.Direction),
		},
	}
	for i, id := range cfg.Columns {
		req.Columns[i] = string(id)
	}
	for _, p := range cfg.Filters {
		f := api.Filter{
			Field:    string(p.Field),
			Operator: string(p.Operator),
			Values:   make([]any, len(p.Values)),
		}
		for i, v := range p.Values {
			if t, ok := v.(time.Time); ok {
				f.Values[i] = t.Format(dateLayout)
			} else {
				f.Values[i] = v
			}
		}
		req.Filters = append(req.Filters, f)
	}
	return req
}

func encodeTemplate(tpl domain.ReportTemplate) api.Template {
	return api.Template{
		ID:          tpl.ID,
		Name:        tpl.Name,
		Description: tpl.Description,
		ReportType:  string(tpl.Config.ReportType),
		CreatedBy:   tpl.CreatedBy,
		CreatedAt:   tpl.CreatedAt.UTC().Format(time.RFC3339),
		IsSystem:    tpl.IsSystem,
	}
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses:
// validation failures are the user's to fix, unknown columns are hard
// failures, store failures surface as a retryable gateway error.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, r, http.StatusBadRequest, api.Error{Error: verr.Error(), Field: verr.Field})
		return
	}
	var cerr *domain.InvalidConfigurationError
	if errors.As(err, &cerr) {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	var derr *domain.DataAccessError
	if errors.As(err, &derr) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("report data access failed")
		writeError(w, r, http.StatusBadGateway, errors.New("report data source is unavailable, try again"))
		return
	}
	writeError(w, r, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, r, status, api.Error{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
