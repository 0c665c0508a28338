package mood

import (
	"fmt"
	"strings"
)

// Category is the closed, user-facing mood set.
type Category string

const (
	Happy       Category = "Happy"
	Calm        Category = "Calm"
	Melancholic Category = "Melancholic"
	Energetic   Category = "Energetic"
	Excited     Category = "Excited"
	Romantic    Category = "Romantic"
)

// Categories lists every mood in display order.
var Categories = []Category{Happy, Calm, Melancholic, Energetic, Excited, Romantic}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown mood category %q", s)
}

// DefaultMoodTable returns the canonical synonym lists per category.
func DefaultMoodTable() map[string][]string {
	return map[string][]string{
		string(Happy):       {"happy", "joy", "pleasure"},
		string(Calm):        {"neutral", "calm", "peaceful"},
		string(Melancholic): {"sad", "sadness", "sorrow", "grief", "crying", "tears", "weeping", "fear", "scared", "afraid", "disgust", "disgusted"},
		string(Energetic):   {"angry", "anger", "rage", "mad"},
		string(Excited):     {"surprised", "surprise", "amazement", "wonder"},
		string(Romantic):    {"love", "affection", "romantic"},
	}
}

// Mapper translates raw classifier labels into mood categories.
// It is read-only after construction.
type Mapper struct {
	labels   map[string]Category
	fallback Category
}

func NewMapper(table map[string][]string, fallback string) (*Mapper, error) {
	def, err := ParseCategory(fallback)
	if err != nil {
		return nil, fmt.Errorf("default mood: %w", err)
	}
	m := &Mapper{labels: make(map[string]Category), fallback: def}
	for name, labels := range table {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		for _, l := range labels {
			key := normalizeLabel(l)
			if prev, ok := m.labels[key]; ok && prev != c {
				return nil, fmt.Errorf("label %q mapped to both %s and %s", key, prev, c)
			}
			m.labels[key] = c
		}
	}
	return m, nil
}

// Map is total: unknown labels fall through to the default category.
func (m *Mapper) Map(label string) Category {
	if c, ok := m.labels[normalizeLabel(label)]; ok {
		return c
	}
	return m.fallback
}

// Default returns the category used for unrecognized labels.
func (m *Mapper) Default() Category { return m.fallback }

var defaultMapper = func() *Mapper {
	m, err := NewMapper(DefaultMoodTable(), string(Calm))
	if err != nil {
		panic(err)
	}
	return m
}()

// MapMood maps label using the canonical table.
func MapMood(label string) Category {
	return defaultMapper.Map(label)
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
