package domain

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// FamilyMember is a person activities can be assigned to
type FamilyMember struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
	Icon  string `json:"icon" yaml:"icon"`
}

// Validate checks a roster entry.
func (m *FamilyMember) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return invalid("id", "member id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return invalid("name", fmt.Sprintf("member %s needs a name", m.ID))
	}
	if !colorRe.MatchString(m.Color) {
		return invalid("color", fmt.Sprintf("member %s: invalid colour %q (#RRGGBB)", m.ID, m.Color))
	}
	return nil
}

// ValidateRoster checks every member and that ids are unique.
func ValidateRoster(members []FamilyMember) error {
	if len(members) == 0 {
		return invalid("members", "the family needs at least one member")
	}
	seen := make(map[string]bool, len(members))
	for i := range members {
		if err := members[i].Validate(); err != nil {
			return err
		}
		if seen[members[i].ID] {
			return invalid("id", fmt.Sprintf("duplicate member id %s", members[i].ID))
		}
		seen[members[i].ID] = true
	}
	return nil
}

// ActivityColors is the fallback palette for activities without known participants.
var ActivityColors = []string{
	"#FFD93D", "#6BCF7F", "#FF6B6B", "#4E9FFF",
	"#A020F0", "#FF9F45", "#00D9FF", "#FF4757",
}

// DefaultFamily returns the roster used when none is configured.
func DefaultFamily() []FamilyMember {
	return []FamilyMember{
		{ID: "rut", Name: "Rut", Color: "#FF6B6B", Icon: "👧"},
		{ID: "pim", Name: "Pim", Color: "#4E9FFF", Icon: "👦"},
		{ID: "siv", Name: "Siv", Color: "#6BCF7F", Icon: "👧"},
		{ID: "mamma", Name: "Mamma", Color: "#A020F0", Icon: "👩"},
		{ID: "pappa", Name: "Pappa", Color: "#FF9F45", Icon: "👨"},
	}
}

// FindMember returns the member with the id, or nil.
func FindMember(members []FamilyMember, id string) *FamilyMember {
	for i := range members {
		if members[i].ID == id {
			return &members[i]
		}
	}
	return nil
}

// ParticipantColors returns the colours of the known participants, in participant order.
func ParticipantColors(participants []string, members []FamilyMember) []string {
	var colors []string
	for _, id := range participants {
		if m := FindMember(members, id); m != nil {
			colors = append(colors, m.Color)
		}
	}
	return colors
}

// ResolveColors returns the colours a renderer should paint the activity with:
// the explicit override, else participant colours, else a palette colour
// picked from the activity id.
func ResolveColors(a *Activity, members []FamilyMember) []string {
	if a.Color != "" {
		return []string{a.Color}
	}
	colors := ParticipantColors(a.Participants, members)
	if len(colors) == 0 {
		return []string{PaletteColor(a.ID)}
	}
	return colors
}

// PaletteColor picks a stable palette colour for an activity id.
func PaletteColor(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return ActivityColors[h.Sum32()%uint32(len(ActivityColors))]
}
