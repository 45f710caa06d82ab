package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/petdex/petdex/internal/storage"
)

// PetHandler handles pet and user endpoints.
type PetHandler struct {
	store  Store
	logger *slog.Logger
}

// NewPetHandler creates a pet handler.
func NewPetHandler(store Store, logger *slog.Logger) *PetHandler {
	return &PetHandler{store: store, logger: logger}
}

// RegisterRoutes registers pet and user routes on the given mux.
func (h *PetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users/{wallet}/pets", h.createPet)
	mux.HandleFunc("GET /api/users/{wallet}/pets", h.listUserPets)
	mux.HandleFunc("GET /api/users/{wallet}/statistics", h.userStatistics)
	mux.HandleFunc("GET /api/pets/{id}", h.getPet)
	mux.HandleFunc("GET /api/pets/{id}/export", h.exportPet)
	mux.HandleFunc("GET /api/pets/{id}/instances", h.listPetInstances)
	mux.HandleFunc("GET /api/pets/{id}/knowledge", h.listPetKnowledge)
}

type createPetRequest struct {
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
}

func (h *PetHandler) createPet(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")

	var req createPetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	pet, err := h.store.CreatePet(r.Context(), storage.CreatePetParams{
		OwnerWallet: wallet,
		Name:        req.Name,
		Rarity:      req.Rarity,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pet)
}

func (h *PetHandler) listUserPets(w http.ResponseWriter, r *http.Request) {
	pets, err := h.store.GetUserPets(r.Context(), r.PathValue("wallet"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pets)
}

func (h *PetHandler) userStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetUserStatistics(r.Context(), r.PathValue("wallet"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *PetHandler) getPet(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	pet, err := h.store.GetPet(r.Context(), petID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

func (h *PetHandler) exportPet(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	export, err := h.store.ExportPetData(r.Context(), petID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *PetHandler) listPetInstances(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	instances, err := h.store.GetPetInstances(r.Context(), petID, limit, offset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

func (h *PetHandler) listPetKnowledge(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	knowledge, err := h.store.GetPetKnowledge(r.Context(), petID, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, knowledge)
}
