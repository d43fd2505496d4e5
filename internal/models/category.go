package models

import (
	"regexp"
	"strings"
)

// Category groups goals for display; it drives colors and unit suggestions only
type Category string

const (
	CategoryPersonal  Category = "personal"
	CategoryHealth    Category = "health"
	CategoryCareer    Category = "career"
	CategoryFinance   Category = "finance"
	CategoryEducation Category = "education"
	CategoryFitness   Category = "fitness"
)

// DefaultGoalColor is used for categories outside the palette
const DefaultGoalColor = "#3B82F6"

// Categories lists every category in display order
var Categories = []Category{
	CategoryPersonal,
	CategoryHealth,
	CategoryCareer,
	CategoryFinance,
	CategoryEducation,
	CategoryFitness,
}

var categoryColors = map[Category]string{
	CategoryPersonal:  "#58CC02",
	CategoryHealth:    "#00CD4B",
	CategoryCareer:    "#7E3AF2",
	CategoryFinance:   "#FBBF24",
	CategoryEducation: "#3B82F6",
	CategoryFitness:   "#FF4B4B",
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	_, ok := categoryColors[c]
	return ok
}

// CategoryColor resolves the display color for a category
func CategoryColor(c Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return DefaultGoalColor
}

// CategoryPlaceholders are the form hints shown for a category
type CategoryPlaceholders struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Unit        string `json:"unit"`
}

// CategoryTemplate carries the authoring suggestions for one category
type CategoryTemplate struct {
	Category         Category             `json:"category"`
	Color            string               `json:"color"`
	Examples         []string             `json:"examples"`
	Units            []string             `json:"units"`
	SuggestedTargets []float64            `json:"suggested_targets"`
	Tips             string               `json:"tips"`
	Placeholders     CategoryPlaceholders `json:"placeholders"`
}

var categoryTemplates = map[Category]CategoryTemplate{
	CategoryPersonal: {
		Examples:         []string{"Read 12 books", "Learn a new language", "Develop a new hobby", "Build better habits"},
		Units:            []string{"books", "hours", "days", "times"},
		SuggestedTargets: []float64{12, 50, 100, 365},
		Tips:             "Personal goals focus on self-improvement and growth",
		Placeholders: CategoryPlaceholders{
			Title:       "e.g., Read 12 books this year",
			Description: "Why is this meaningful to you?",
			Target:      "12",
			Unit:        "books",
		},
	},
	CategoryHealth: {
		Examples:         []string{"Drink 8 glasses of water daily", "Sleep 8 hours nightly", "Reduce stress", "Regular checkups"},
		Units:            []string{"glasses", "hours", "days", "visits"},
		SuggestedTargets: []float64{8, 30, 90, 180},
		Tips:             "Health goals improve your physical and mental wellbeing",
		Placeholders: CategoryPlaceholders{
			Title:       "e.g., Drink 8 glasses of water daily",
			Description: "Track your hydration journey",
			Target:      "8",
			Unit:        "glasses/day",
		},
	},
	CategoryCareer: {
		Examples:         []string{"Get a promotion", "Learn new skills", "Network with professionals", "Complete certifications"},
		Units:            []string{"certifications", "connections", "projects", "skills"},
		SuggestedTargets: []float64{1, 5, 10, 20},
		Tips:             "Career goals advance your professional development",
		Placeholders: CategoryPlaceholders{
			Title:       "e.g., Complete 3 professional certifications",
			Description: "Advance your career with new skills",
			Target:      "3",
			Unit:        "certifications",
		},
	},
	CategoryFinance: {
		Examples:         []string{"Save $10,000", "Pay off debt", "Build emergency fund", "Increase income"},
		Units:            []string{"$", "€", "£", "units"},
		SuggestedTargets: []float64{1000, 5000, 10000, 50000},
		Tips:             "Finance goals secure your financial future",
		Placeholders: CategoryPlaceholders{
			Title:       "e.g., Save $10,000 for emergency fund",
			Description: "Build financial security",
			Target:      "10000",
			Unit:        "$",
		},
	},
	CategoryEducation: {
		Examples:         []string{"Complete online courses", "Learn programming", "Master a subject", "Get a degree"},
		Units:            []string{"courses", "hours", "modules", "credits"},
		SuggestedTargets: []float64{5, 50, 100, 120},
		Tips:             "Education goals expand your knowledge and skills",
		Placeholders: CategoryPlaceholders{
			Title:       "e.g., Complete 5 online courses",
			Description: "Invest in your education",
			Target:      "5",
			Unit:        "courses",
		},
	},
	CategoryFitness: {
		Examples:         []string{"Run 500 km", "Lose 10 kg", "Workout 150 times", "Run a marathon"},
		Units:            []string{"km", "kg", "workouts", "minutes"},
		SuggestedTargets: []float64{100, 500, 1000, 5000},
		Tips:             "Fitness goals improve your strength and endurance",
		Placeholders: CategoryPlaceholders{
			Title:       "e.g., Run 500 km this year",
			Description: "Build strength and endurance",
			Target:      "500",
			Unit:        "km",
		},
	},
}

// CategoryTemplates returns the authoring templates in display order
func CategoryTemplates() []CategoryTemplate {
	templates := make([]CategoryTemplate, 0, len(Categories))
	for _, c := range Categories {
		templates = append(templates, TemplateFor(c))
	}
	return templates
}

// TemplateFor returns the template for one category, falling back to personal
func TemplateFor(c Category) CategoryTemplate {
	tmpl, ok := categoryTemplates[c]
	if !ok {
		c = CategoryPersonal
		tmpl = categoryTemplates[c]
	}
	tmpl.Category = c
	tmpl.Color = CategoryColor(c)
	return tmpl
}

type unitRule struct {
	pattern *regexp.Regexp
	units   []string
}

// Rules are checked in order; the first match wins. Keywords match word prefixes.
var unitRules = []unitRule{
	{regexp.MustCompile(`\b(run|jog|walk|marathon|sprint|race|distance)`), []string{"km", "miles", "meters", "steps"}},
	{regexp.MustCompile(`\b(read|book|novel|article|page)`), []string{"books", "pages", "chapters", "articles"}},
	{regexp.MustCompile(`\b(save|earn|invest|money|dollar|budget)`), []string{"$", "€", "£", "dollars"}},
	{regexp.MustCompile(`\b(workout|exercise|train|gym|fitness|lift)`), []string{"workouts", "sessions", "days", "hours"}},
	{regexp.MustCompile(`\b(write|blog|post|essay|story)`), []string{"words", "articles", "posts", "pages"}},
	{regexp.MustCompile(`\b(lose|gain|weight|kg|lb|pound)`), []string{"kg", "lbs", "pounds", "stone"}},
	{regexp.MustCompile(`\b(drink|water|hydrat|glass)`), []string{"glasses", "liters", "bottles", "oz"}},
	{regexp.MustCompile(`\b(sleep|rest|nap)`), []string{"hours", "nights", "days"}},
	{regexp.MustCompile(`\b(learn|course|lesson|study|certif)`), []string{"courses", "hours", "lessons", "certifications"}},
	{regexp.MustCompile(`\b(meditat|practice|habit|daily)`), []string{"days", "times", "hours", "sessions"}},
}

// SuggestUnits proposes units from keywords in a goal title.
// It returns nil when no keyword matches so callers can fall back to the category units.
func SuggestUnits(title string) []string {
	lower := strings.ToLower(title)
	for _, rule := range unitRules {
		if rule.pattern.MatchString(lower) {
			return append([]string(nil), rule.units...)
		}
	}
	return nil
}
