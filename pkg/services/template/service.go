package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/fleet-tools/work-ledger/pkg/models/store"
	"github.com/fleet-tools/work-ledger/pkg/services/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DriftPolicy controls how a load reacts to template columns no longer in
// the registry. Both policies drop the unknown ids and keep the template
// usable; warn additionally logs at warn level and reports the dropped ids
// to the caller.
type DriftPolicy string

const (
	DriftWarn   DriftPolicy = "warn"
	DriftSilent DriftPolicy = "silent"
)

// ParseDriftPolicy validates a configured policy name.
func ParseDriftPolicy(s string) (DriftPolicy, error) {
	switch DriftPolicy(s) {
	case DriftWarn, DriftSilent:
		return DriftPolicy(s), nil
	case "":
		return DriftWarn, nil
	default:
		return DriftWarn, fmt.Errorf("unknown drift policy %q", s)
	}
}

// Store is the keyed record store the service persists templates in.
type Store interface {
	Insert(ctx context.Context, t store.ReportTemplate) error
	Get(ctx context.Context, id string) (store.ReportTemplate, error)
	List(ctx context.Context) ([]store.ReportTemplate, error)
	Delete(ctx context.Context, id string) error
}

// Service snapshots and restores report configurations as named templates.
type Service struct {
	store    Store
	registry *report.Registry
	drift    DriftPolicy
}

func NewService(s Store, registry *report.Registry, drift DriftPolicy) *Service {
	return &Service{store: s, registry: registry, drift: drift}
}

// persistedConfig is the serialized form of a configuration inside a
// template record. Date scalars travel as "2006-01-02" strings so the blob
// stays readable and version-stable.
type persistedConfig struct {
	ReportType string            `json:"reportType"`
	Columns    []string          `json:"columns"`
	Filters    []persistedFilter `json:"filters,omitempty"`
	Sort       persistedSort     `json:"sort"`
}

type persistedFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Values   []any  `json:"values"`
}

type persistedSort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Save validates and persists a configuration under a name.
func (s *Service) Save(ctx context.Context, cfg domain.ReportConfig, name, description, authorID string) (domain.ReportTemplate, error) {
	if strings.TrimSpace(name) == "" {
		return domain.ReportTemplate{}, domain.NewValidationError("name", "template name must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return domain.ReportTemplate{}, domain.NewValidationError("columns", "template must select at least one column")
	}
	if err := report.Validate(s.registry, cfg); err != nil {
		return domain.ReportTemplate{}, err
	}

	blob, err := json.Marshal(encodeConfig(cfg))
	if err != nil {
		return domain.ReportTemplate{}, fmt.Errorf("encode template config: %w", err)
	}

	rec := store.ReportTemplate{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: description,
		ReportType:  string(cfg.ReportType),
		Config:      blob,
		CreatedBy:   authorID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return domain.ReportTemplate{}, err
	}

	return domain.ReportTemplate{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Config:      cfg,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// Load restores a template as a ready-to-run configuration. Column ids the
// current registry no longer knows are stripped rather than failing the
// load, so a stale template degrades instead of breaking; the dropped ids
// are returned for the UI when the drift policy is warn.
func (s *Service) Load(ctx context.Context, id string) (domain.ReportTemplate, []domain.ColumnID, error) {
	logger := zerolog.Ctx(ctx)

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.ReportTemplate{}, nil, err
	}

	var pc persistedConfig
	if err := json.Unmarshal(rec.Config, &pc); err != nil {
		return domain.ReportTemplate{}, nil, fmt.Errorf("decode template %s config: %w", id, err)
	}

	cfg, dropped, err := s.restore(pc)
	if err != nil {
		return domain.ReportTemplate{}, nil, err
	}
	if len(dropped) > 0 {
		evt := logger.Debug()
		if s.drift == DriftWarn {
			evt = logger.Warn()
		}
		evt.Str("template_id", rec.ID).
			Interface("dropped_columns", dropped).
			Msg("template references columns missing from the registry")
		if s.drift == DriftSilent {
			dropped = nil
		}
	}

	return domain.ReportTemplate{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Config:      cfg,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
		IsSystem:    rec.IsSystem,
	}, dropped, nil
}

// List returns all stored templates with their configurations restored
// (drift-filtered, drops not reported).
func (s *Service) List(ctx context.Context) ([]domain.ReportTemplate, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	templates := make([]domain.ReportTemplate, 0, len(recs))
	for _, rec := range recs {
		templates = append(templates, domain.ReportTemplate{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Config:      domain.ReportConfig{ReportType: domain.ReportType(rec.ReportType)},
			CreatedBy:   rec.CreatedBy,
			CreatedAt:   rec.CreatedAt,
			IsSystem:    rec.IsSystem,
		})
	}
	return templates, nil
}

// Delete removes a template. System templates are protected.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.IsSystem {
		return domain.NewValidationError("id", "system templates cannot be deleted")
	}
	return s.store.Delete(ctx, id)
}

// restore rebuilds a configuration through the same transforms the UI uses,
// so every stored predicate is re-validated against the current registry.
func (s *Service) restore(pc persistedConfig) (domain.ReportConfig, []domain.ColumnID, error) {
	rt := domain.ReportType(pc.ReportType)
	cfg, err := report.Default(s.registry, rt)
	if err != nil {
		return domain.ReportConfig{}, nil, domain.NewValidationError("reportType", "%v", err)
	}

	var dropped []domain.ColumnID
	known := make(map[domain.ColumnID]bool)

	// Rebuild the selection in stored order; required defaults not present
	// in the template keep their default slot.
	selection := cfg.Columns
	cfg.Columns = nil
	for _, raw := range pc.Columns {
		id := domain.ColumnID(raw)
		if _, ok := s.registry.Column(id); !ok {
			dropped = append(dropped, id)
			continue
		}
		if !known[id] {
			cfg.Columns = append(cfg.Columns, id)
			known[id] = true
		}
	}
	for _, id := range selection {
		if !known[id] {
			cfg.Columns = append(cfg.Columns, id)
			known[id] = true
		}
	}

	for _, f := range pc.Filters {
		id := domain.ColumnID(f.Field)
		if _, ok := s.registry.Column(id); !ok {
			dropped = appendUnique(dropped, id)
			continue
		}
		cfg, err = report.SetFilter(s.registry, cfg, id, domain.FilterOperator(f.Operator), f.Values...)
		if err != nil {
			return domain.ReportConfig{}, nil, err
		}
	}

	sortID := domain.ColumnID(pc.Sort.Field)
	if _, ok := s.registry.Column(sortID); ok {
		cfg, err = report.SetSort(s.registry, cfg, sortID, domain.SortDirection(pc.Sort.Direction))
		if err != nil {
			return domain.ReportConfig{}, nil, err
		}
	} else if pc.Sort.Field != "" {
		dropped = appendUnique(dropped, sortID)
	}

	return cfg, dropped, nil
}

func encodeConfig(cfg domain.ReportConfig) persistedConfig {
	pc := persistedConfig{
		ReportType: string(cfg.ReportType),
		Columns:    make([]string, len(cfg.Columns)),
		Sort: persistedSort{
			Field:     string(cfg.Sorting.Field),
			Direction: string(cfg.Sorting.Direction),
		},
	}
	for i, id := range cfg.Columns {
		pc.Columns[i] = string(id)
	}
	for _, p := range cfg.Filters {
		pf := persistedFilter{
			Field:    string(p.Field),
			Operator: string(p.Operator),
			Values:   make([]any, len(p.Values)),
		}
		for i, v := range p.Values {
			if t, ok := v.(time.Time); ok {
				pf.Values[i] = t.Format("2006-01-02")
			} else {
				pf.Values[i] = v
			}
		}
		pc.Filters = append(pc.Filters, pf)
	}
	return pc
}

func appendUnique(ids []domain.ColumnID, id domain.ColumnID) []domain.ColumnID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
