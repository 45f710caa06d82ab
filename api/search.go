package api

import (
	"log/slog"
	"net/http"

	"github.com/petdex/petdex/internal/semantic"
)

// SearchHandler handles lexical and semantic search endpoints.
type SearchHandler struct {
	searcher ContentSearcher
	semantic SemanticSearcher
	logger   *slog.Logger
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(searcher ContentSearcher, semanticSearcher SemanticSearcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, semantic: semanticSearcher, logger: logger}
}

// RegisterRoutes registers search routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/pets/{id}/search", h.searchPet)
	mux.HandleFunc("GET /api/users/{wallet}/search", h.searchUser)
	mux.HandleFunc("GET /api/semantic/search", h.semanticSearch)
	mux.HandleFunc("GET /api/pets/{id}/semantic/search", h.semanticSearchPet)
	mux.HandleFunc("GET /api/users/{wallet}/semantic/search", h.semanticSearchUser)
}

// searchQuery extracts the required q parameter and optional limit.
func searchQuery(r *http.Request) (query string, limit int, err error) {
	query = r.URL.Query().Get("q")
	if query == "" {
		return "", 0, errMissingQuery
	}
	limit, err = queryInt(r, "limit", 0)
	return query, limit, err
}

var errMissingQuery = &queryError{"query parameter q is required"}

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }

func (h *SearchHandler) searchPet(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	query, limit, err := searchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	results, err := h.searcher.SearchPetContent(r.Context(), petID, query, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *SearchHandler) searchUser(w http.ResponseWriter, r *http.Request) {
	query, limit, err := searchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	results, err := h.searcher.SearchUserContent(r.Context(), r.PathValue("wallet"), query, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// semanticParams builds semantic.Params from limit and threshold query
// parameters.
func semanticParams(r *http.Request) (string, semantic.Params, error) {
	query := r.URL.Query().Get("q")
	if query == "" {
		return "", semantic.Params{}, errMissingQuery
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return "", semantic.Params{}, err
	}
	params := semantic.Params{Limit: limit}

	threshold, ok, err := queryFloat(r, "threshold")
	if err != nil {
		return "", semantic.Params{}, err
	}
	if ok {
		params = params.WithThreshold(threshold)
	}
	return query, params, nil
}

func (h *SearchHandler) semanticSearch(w http.ResponseWriter, r *http.Request) {
	query, params, err := semanticParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	results, err := h.semantic.SearchKnowledge(r.Context(), query, params)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *SearchHandler) semanticSearchPet(w http.ResponseWriter, r *http.Request) {
	petID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	query, params, err := semanticParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	results, err := h.semantic.SearchPetKnowledge(r.Context(), petID, query, params)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *SearchHandler) semanticSearchUser(w http.ResponseWriter, r *http.Request) {
	query, params, err := semanticParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	results, err := h.semantic.SearchUserKnowledge(r.Context(), r.PathValue("wallet"), query, params)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
