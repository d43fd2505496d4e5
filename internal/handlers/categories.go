package handlers

import (
	"net/http"

	"github.com/benvon/goalquest/internal/models"
	"github.com/gorilla/mux"
)

// CategoriesHandler serves category templates and unit suggestions
type CategoriesHandler struct{}

// NewCategoriesHandler creates a new categories handler
func NewCategoriesHandler() *CategoriesHandler {
	return &CategoriesHandler{}
}

// RegisterRoutes registers category routes on the given router
func (h *CategoriesHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/categories", h.ListCategories).Methods("GET")
	r.HandleFunc("/categories/units", h.SuggestUnits).Methods("GET")
}

// UnitSuggestion lists units for a title; Matched is false when the category defaults were used
type UnitSuggestion struct {
	Units   []string `json:"units"`
	Matched bool     `json:"matched"`
}

// ListCategories returns every category template in display order
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.CategoryTemplates())
}

// SuggestUnits proposes units from ?title=, falling back to the ?category= template
func (h *CategoriesHandler) SuggestUnits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if units := models.SuggestUnits(q.Get("title")); units != nil {
		respondJSON(w, http.StatusOK, UnitSuggestion{Units: units, Matched: true})
		return
	}
	respondJSON(w, http.StatusOK, UnitSuggestion{
		Units: models.TemplateFor(models.Category(q.Get("category"))).Units,
	})
}
