/*
handlers.go - HTTP request handlers for the keg ledger API

PURPOSE:
  Translates HTTP requests into ledger.Service calls and domain results back
  into JSON. All business rules live in the ledger package; handlers only
  parse, delegate, and map errors to status codes.

ERROR MAPPING:
  - Invalid input    -> 400 Bad Request
  - Missing record   -> 404 Not Found
  - Conflicts        -> 409 Conflict
  - Everything else  -> 500 Internal Server Error
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kegtracer/engine/ledger"
)

const dateLayout = "2006-01-02"

// Handler holds the handler dependencies.
type Handler struct {
	svc *ledger.Service
	log zerolog.Logger
	now func() time.Time
}

// NewHandler creates an API handler around the ledger service.
func NewHandler(svc *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CLIENTS
// =============================================================================

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]ClientDTO, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid JSON body", err)
		return
	}

	created, err := h.svc.CreateClient(r.Context(), ledger.Client{
		Name:    req.Name,
		Address: req.Address,
		Email:   req.Email,
		TaxID:   req.TaxID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(created))
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.badRequest(w, "invalid client id", err)
		return
	}
	if err := h.svc.DeleteClient(r.Context(), ledger.ClientID(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BEERS
// =============================================================================

func (h *Handler) ListBeers(w http.ResponseWriter, r *http.Request) {
	beers, err := h.svc.ListBeers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]BeerDTO, 0, len(beers))
	for _, b := range beers {
		out = append(out, toBeerDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateBeer(w http.ResponseWriter, r *http.Request) {
	var req CreateBeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid JSON body", err)
		return
	}

	price, err := decimal.NewFromString(req.PriceTTC)
	if err != nil {
		h.badRequest(w, "invalid price_ttc", err)
		return
	}
	deposit := ledger.DefaultDepositPerKeg
	if req.DepositPerKeg != "" {
		deposit, err = decimal.NewFromString(req.DepositPerKeg)
		if err != nil {
			h.badRequest(w, "invalid deposit_per_keg", err)
			return
		}
	}

	created, err := h.svc.CreateBeer(r.Context(), ledger.Beer{
		Name:          req.Name,
		VolumeLiters:  req.VolumeLiters,
		PriceTTC:      price,
		DepositPerKeg: deposit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBeerDTO(created))
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r, false)
	if err != nil {
		h.badRequest(w, "invalid filter", err)
		return
	}
	movements, err := h.svc.ListMovements(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var req CreateMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid JSON body", err)
		return
	}

	mtype, ok := ledger.ParseMovementType(req.Type)
	if !ok {
		h.badRequest(w, "invalid movement type", fmt.Errorf("%w: %q", ledger.ErrInvalidMovementType, req.Type))
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		h.badRequest(w, "invalid date, expected YYYY-MM-DD", err)
		return
	}

	m, err := h.svc.CreateMovement(r.Context(), ledger.CreateMovementInput{
		Date:           date,
		Type:           mtype,
		ClientID:       ledger.ClientID(req.ClientID),
		BeerID:         ledger.BeerID(req.BeerID),
		Quantity:       req.Quantity,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(*m))
}

func (h *Handler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.svc.GetMovement(r.Context(), ledger.MovementID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(*m))
}

func (h *Handler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteMovement(r.Context(), ledger.MovementID(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORTS
// =============================================================================

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r, true)
	if err != nil {
		h.badRequest(w, "invalid filter", err)
		return
	}
	result, err := h.svc.Report(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(result))
}

// =============================================================================
// FILTER PARSING
// =============================================================================

// parseFilter reads client_id, beer_id, and the date scope from the query.
// The scope is either months_back=N (N full calendar months ending before the
// current one) or from/to as YYYY-MM-DD, both inclusive. allowMonths gates
// months_back to the report endpoint.
func (h *Handler) parseFilter(r *http.Request, allowMonths bool) (ledger.Filter, error) {
	var f ledger.Filter
	q := r.URL.Query()

	if raw := q.Get("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("client_id: %w", err)
		}
		cid := ledger.ClientID(id)
		f.ClientID = &cid
	}
	if raw := q.Get("beer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("beer_id: %w", err)
		}
		bid := ledger.BeerID(id)
		f.BeerID = &bid
	}

	if raw := q.Get("months_back"); raw != "" {
		if !allowMonths {
			return f, fmt.Errorf("months_back is not supported here")
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("months_back must be a positive integer")
		}
		rng := ledger.MonthsBack(h.now().UTC(), n)
		f.Range = &rng
		return f, nil
	}

	fromRaw, toRaw := q.Get("from"), q.Get("to")
	if fromRaw == "" && toRaw == "" {
		return f, nil
	}
	if fromRaw == "" || toRaw == "" {
		return f, fmt.Errorf("from and to must be provided together")
	}
	from, err := time.Parse(dateLayout, fromRaw)
	if err != nil {
		return f, fmt.Errorf("from: %w", err)
	}
	to, err := time.Parse(dateLayout, toRaw)
	if err != nil {
		return f, fmt.Errorf("to: %w", err)
	}
	rng := ledger.NewDateRange(from, to)
	if !rng.Valid() {
		return f, fmt.Errorf("from must not be after to")
	}
	f.Range = &rng
	return f, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Details: err.Error()})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case ledger.IsInvalidInput(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case ledger.IsConflict(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
