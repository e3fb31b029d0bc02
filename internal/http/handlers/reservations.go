package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/http/response"
	"github.com/unionhall/pit-reservations/internal/platform/idempotency"
	"github.com/unionhall/pit-reservations/internal/service"
	"github.com/unionhall/pit-reservations/pkg/logger"
)

const (
	idempotencyTTL = 24 * time.Hour

	// inProgressMarker claims a key before the reservation is executed so
	// concurrent requests with the same key cannot both run. It is replaced
	// by the response body on success and released on failure.
	inProgressMarker = "in-progress"
	claimTTL         = time.Minute
)

type ReservationHandler struct {
	scheduler service.Scheduler
	idem      idempotency.Store
}

func NewReservationHandler(scheduler service.Scheduler, idem idempotency.Store) *ReservationHandler {
	return &ReservationHandler{scheduler: scheduler, idem: idem}
}

func (h *ReservationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.listUpcoming)
	r.Get("/{id}", h.getByID)
	r.Delete("/{id}", h.cancel)
	return r
}

type createReservationResponse struct {
	Success     bool                  `json:"success"`
	Message     string                `json:"message"`
	Reservation domain.ReservationDTO `json:"reservation"`
	Fee         *domain.FeeDTO        `json:"fee,omitempty"`
	PaymentCode string                `json:"payment_code,omitempty"`
}

func (h *ReservationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req domain.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		claimed, err := h.idem.SetNX(r.Context(), key, inProgressMarker, claimTTL)
		if err != nil {
			logger.ErrorContext(r.Context(), "idempotency claim failed", "error", err)
			key = ""
		} else if !claimed {
			stored, ok, err := h.idem.Get(r.Context(), key)
			switch {
			case err != nil:
				logger.ErrorContext(r.Context(), "idempotency lookup failed", "error", err)
			case ok && stored == inProgressMarker:
				response.WriteError(w, http.StatusConflict,
					"a request with this idempotency key is still being processed", response.CodeConflict)
				return
			case ok:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(stored))
				return
			}
		}
	}

	result, err := h.scheduler.CreateReservation(r.Context(), &req)
	if err != nil {
		if key != "" {
			if delErr := h.idem.Delete(r.Context(), key); delErr != nil {
				logger.ErrorContext(r.Context(), "idempotency release failed", "error", delErr)
			}
		}
		response.WriteDomainError(w, err)
		return
	}

	out := createReservationResponse{
		Success:     true,
		Message:     result.Message,
		Reservation: result.Reservation.DTO(),
	}
	if result.Fee != nil {
		dto := result.Fee.DTO()
		out.Fee = &dto
		out.PaymentCode = result.Fee.PaymentCode
	}

	if key != "" {
		if body, err := json.Marshal(out); err == nil {
			if err := h.idem.Set(r.Context(), key, string(body), idempotencyTTL); err != nil {
				logger.ErrorContext(r.Context(), "idempotency store failed", "error", err)
			}
		}
	}

	response.WriteJSON(w, http.StatusCreated, out)
}

func (h *ReservationHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	reservation, err := h.scheduler.Get(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, reservation.DTO())
}

func (h *ReservationHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	if err := h.scheduler.CancelReservation(r.Context(), id, r.URL.Query().Get("email")); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "reservation cancelled",
	})
}

func (h *ReservationHandler) listUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid days")
			return
		}
		days = n
	}

	reservations, err := h.scheduler.ListUpcoming(r.Context(), days)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	out := make([]domain.ReservationDTO, 0, len(reservations))
	for i := range reservations {
		out = append(out, reservations[i].DTO())
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// Availability handles GET /v1/availability?date=&start=&end=.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.scheduler.CheckAvailability(r.Context(), q.Get("date"), q.Get("start"), q.Get("end"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// Stats handles GET /v1/stats.
func (h *ReservationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scheduler.Stats(r.Context())
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}
