package work

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/models/api"
	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/fleet-tools/work-ledger/pkg/models/store"
	workstore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/work"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Handler is the operational CRUD surface for work records.
type Handler struct {
	store *workstore.Store
}

func NewHandler(s *workstore.Store) *Handler {
	return &Handler{store: s}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	records, err := h.store.List(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	response := make([]api.WorkRecord, 0, len(records))
	for _, rec := range records {
		response = append(response, encodeRecord(rec))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, workstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, encodeRecord(rec))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	id, err := h.store.Insert(r.Context(), rec)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	rec.ID = id
	writeJSON(w, r, http.StatusCreated, encodeRecord(rec))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec.ID = id
	err := h.store.Update(r.Context(), rec)
	if errors.Is(err, workstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, encodeRecord(rec))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	err := h.store.Delete(r.Context(), id)
	if errors.Is(err, workstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "recordID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid record id %q", raw))
		return 0, false
	}
	return id, true
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (store.WorkRecord, bool) {
	var req api.WorkRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return store.WorkRecord{}, false
	}
	workDate, err := time.Parse(dateLayout, req.WorkDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid workDate %q, want YYYY-MM-DD", req.WorkDate))
		return store.WorkRecord{}, false
	}
	return store.WorkRecord{
		ID:           req.ID,
		WorkDate:     workDate.UTC(),
		VehicleID:    req.VehicleID,
		RateConfigID: req.RateConfigID,
		LocationID:   req.LocationID,
		EmployeeID:   req.EmployeeID,
		Quantity:     req.Quantity,
		TotalRevenue: req.TotalRevenue,
		FuelCost:     req.FuelCost,
		Notes:        req.Notes,
	}, true
}

func encodeRecord(rec store.WorkRecord) api.WorkRecord {
	return api.WorkRecord{
		ID:           rec.ID,
		WorkDate:     rec.WorkDate.Format(dateLayout),
		VehicleID:    rec.VehicleID,
		RateConfigID: rec.RateConfigID,
		LocationID:   rec.LocationID,
		EmployeeID:   rec.EmployeeID,
		Quantity:     rec.Quantity,
		TotalRevenue: rec.TotalRevenue,
		FuelCost:     rec.FuelCost,
		Notes:        rec.Notes,
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.DataAccessError
	if errors.As(err, &derr) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("work record store failed")
		writeError(w, r, http.StatusBadGateway, errors.New("data store is unavailable, try again"))
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
