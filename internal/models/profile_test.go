package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestProfilePatch_Apply(t *testing.T) {
	orig := Profile{
		ID: "7", Name: "Ada", Email: "ada@example.com", Title: "Engineer",
		Bio: "Writes programs", ImageURL: "http://x/a.png", Username: "ada",
	}

	got := ProfilePatch{Name: strPtr("X")}.Apply(orig)

	want := orig
	want.Name = "X"
	assert.Equal(t, want, got)
	assert.Equal(t, "Ada", orig.Name, "original must not be mutated")
}

func TestProfilePatch_IsEmpty(t *testing.T) {
	assert.True(t, ProfilePatch{}.IsEmpty())
	assert.False(t, ProfilePatch{Website: strPtr("")}.IsEmpty())
}

func TestProfileFilter_Matches(t *testing.T) {
	p := Profile{Name: "Samantha Chen", Title: "UX/UI Designer", Bio: "Accessibility and inclusive design."}

	tests := []struct {
		name   string
		filter ProfileFilter
		want   bool
	}{
		{"zero value", ProfileFilter{}, true},
		{"all titles", ProfileFilter{Title: "all"}, true},
		{"title match", ProfileFilter{Title: "UX/UI Designer"}, true},
		{"title mismatch", ProfileFilter{Title: "Data Scientist"}, false},
		{"search name case-insensitive", ProfileFilter{Search: "samantha"}, true},
		{"search bio", ProfileFilter{Search: "INCLUSIVE"}, true},
		{"search miss", ProfileFilter{Search: "kubernetes"}, false},
		{"title and search", ProfileFilter{Title: "UX/UI Designer", Search: "chen"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(p))
		})
	}
}
