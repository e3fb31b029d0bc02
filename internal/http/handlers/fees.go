package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/http/response"
	"github.com/unionhall/pit-reservations/internal/service"
)

type FeeHandler struct {
	ledger service.FeeLedger
}

func NewFeeHandler(ledger service.FeeLedger) *FeeHandler {
	return &FeeHandler{ledger: ledger}
}

// Routes is the public fee surface.
func (h *FeeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/lookup", h.lookupByCode)
	r.Get("/{id}", h.getByID)
	r.Post("/{id}/confirm", h.confirm)
	return r
}

func (h *FeeHandler) lookupByCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.BadRequest(w, "code is required")
		return
	}

	fee, err := h.ledger.GetByPaymentCode(r.Context(), code)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, fee.DTO())
}

// AdminRoutes is mounted behind the admin JWT middleware.
func (h *FeeHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/totals", h.totals)
	r.Post("/sweep", h.sweep)
	r.Post("/{id}/cancel", h.cancel)
	return r
}

func (h *FeeHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	fee, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, fee.DTO())
}

func (h *FeeHandler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var in struct {
		ConfirmationCode string `json:"confirmation_code"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "invalid json")
			return
		}
	}

	fee, err := h.ledger.ConfirmPayment(r.Context(), id, in.ConfirmationCode)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "payment confirmed",
		"fee":     fee.DTO(),
	})
}

func (h *FeeHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	var in struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "invalid json")
			return
		}
	}

	fee, err := h.ledger.Cancel(r.Context(), id, in.Reason)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, fee.DTO())
}

func (h *FeeHandler) sweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.ledger.SweepExpired(r.Context(), time.Now())
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	out := make([]domain.FeeDTO, 0, len(expired))
	for i := range expired {
		out = append(out, expired[i].DTO())
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"expired_count": len(out),
		"expired":       out,
	})
}

func (h *FeeHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		fees []domain.Fee
		err  error
	)

	switch {
	case r.URL.Query().Get("member_id") != "":
		fees, err = h.ledger.ListByMember(r.Context(), r.URL.Query().Get("member_id"))
	case r.URL.Query().Get("status") != "":
		status, ok := domain.ParseFeeStatus(r.URL.Query().Get("status"))
		if !ok {
			response.BadRequest(w, "invalid status")
			return
		}
		fees, err = h.ledger.ListByStatus(r.Context(), status)
	default:
		response.BadRequest(w, "status or member_id is required")
		return
	}
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	out := make([]domain.FeeDTO, 0, len(fees))
	for i := range fees {
		out = append(out, fees[i].DTO())
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *FeeHandler) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.ledger.Totals(r.Context())
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, totals)
}
