package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/http/response"
	"github.com/unionhall/pit-reservations/internal/service"
)

type MemberHandler struct {
	members service.MemberService
}

func NewMemberHandler(members service.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// AdminRoutes is mounted behind the admin JWT middleware.
func (h *MemberHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.register)
	r.Get("/", h.list)
	r.Get("/{id}", h.getByID)
	r.Patch("/{id}/dues", h.setDues)
	r.Delete("/{id}", h.deactivate)
	return r
}

func (h *MemberHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	member, err := h.members.Register(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) getByID(w http.ResponseWriter, r *http.Request) {
	member, err := h.members.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) setDues(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Standing string `json:"standing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	standing, ok := domain.ParseDuesStanding(in.Standing)
	if !ok {
		response.BadRequest(w, "standing must be 'current' or 'delinquent'")
		return
	}

	member, err := h.members.SetDuesStanding(r.Context(), chi.URLParam(r, "id"), standing)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	member, err := h.members.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) list(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("standing") == string(domain.DuesDelinquent) {
		members, err := h.members.ListDelinquent(r.Context())
		if err != nil {
			response.WriteDomainError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, members)
		return
	}

	onlyActive := r.URL.Query().Get("active") == "true"
	members, err := h.members.List(r.Context(), onlyActive)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, members)
}
