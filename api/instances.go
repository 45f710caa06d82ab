package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/petdex/petdex/internal/storage"
)

// InstanceHandler handles data instance and attachment endpoints.
type InstanceHandler struct {
	store  Store
	logger *slog.Logger
}

// NewInstanceHandler creates an instance handler.
func NewInstanceHandler(store Store, logger *slog.Logger) *InstanceHandler {
	return &InstanceHandler{store: store, logger: logger}
}

// RegisterRoutes registers instance routes on the given mux.
func (h *InstanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/pets/{id}/instances", h.createInstance)
	mux.HandleFunc("GET /api/datainstances/{id}", h.getInstance)
	mux.HandleFunc("GET /api/datainstances/{id}/knowledge", h.listKnowledge)
	mux.HandleFunc("GET /api/datainstances/{id}/images", h.listImages)
	mux.HandleFunc("POST /api/datainstances/{id}/knowledge", h.addKnowledge)
	mux.HandleFunc("POST /api/datainstances/{id}/images", h.addImages)
}

func (h *InstanceHandler) createInstance(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var params storage.CreateInstanceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body: "+err.Error())
		return
	}
	if params.Content == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "content is required")
		return
	}
	params.PetID = petID

	inst, err := h.store.CreateCompleteDataInstance(r.Context(), params)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *InstanceHandler) getInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	inst, err := h.store.GetDataInstanceWithContent(r.Context(), instanceID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *InstanceHandler) listKnowledge(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	knowledge, err := h.store.GetInstanceKnowledge(r.Context(), instanceID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, knowledge)
}

func (h *InstanceHandler) listImages(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	images, err := h.store.GetInstanceImages(r.Context(), instanceID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

type addKnowledgeRequest struct {
	Knowledge []storage.KnowledgeParams `json:"knowledge"`
}

func (h *InstanceHandler) addKnowledge(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req addKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Knowledge) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "knowledge list is empty")
		return
	}

	saved, err := h.store.BulkAddKnowledge(r.Context(), instanceID, req.Knowledge)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type addImagesRequest struct {
	Images []storage.ImageParams `json:"images"`
}

func (h *InstanceHandler) addImages(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req addImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "images list is empty")
		return
	}

	saved, err := h.store.BulkAddImages(r.Context(), instanceID, req.Images)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
