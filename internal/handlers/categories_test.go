package handlers

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/benvon/goalquest/internal/models"
)

func TestCategoriesHandler(t *testing.T) {
	t.Parallel()

	h := NewCategoriesHandler()

	w := serve(h.RegisterRoutes, newTestRequest(http.MethodGet, "/categories", nil), "")
	var templates []models.CategoryTemplate
	decodeEnvelope(t, w, &templates)
	if len(templates) != len(models.Categories) || templates[0].Category != models.CategoryPersonal {
		t.Errorf("Unexpected templates %+v", templates)
	}

	tests := []struct {
		name        string
		query       string
		wantUnits   []string
		wantMatched bool
	}{
		{name: "keyword match", query: "?title=Run+a+marathon", wantUnits: []string{"km", "miles", "meters", "steps"}, wantMatched: true},
		{name: "category fallback", query: "?title=Paint&category=finance", wantUnits: models.TemplateFor(models.CategoryFinance).Units},
		{name: "no hints", query: "", wantUnits: models.TemplateFor(models.CategoryPersonal).Units},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(h.RegisterRoutes, newTestRequest(http.MethodGet, "/categories/units"+tt.query, nil), "")
			var got UnitSuggestion
			decodeEnvelope(t, w, &got)
			if !reflect.DeepEqual(got.Units, tt.wantUnits) || got.Matched != tt.wantMatched {
				t.Errorf("Expected %v (matched %v), got %+v", tt.wantUnits, tt.wantMatched, got)
			}
		})
	}
}
