package document

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Preset is a named canvas size offered by the editor.
type Preset struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the preset dimensions.
func (p Preset) Size() Size {
	return Size{Width: p.Width, Height: p.Height}
}

var presets = []Preset{
	{Slug: "business-card", Name: "Business Card", Width: 1050, Height: 600},
	{Slug: "flyer", Name: "Flyer", Width: 1275, Height: 1650},
	{Slug: "banner", Name: "Banner", Width: 1920, Height: 480},
	{Slug: "square", Name: "Square", Width: 1080, Height: 1080},
	{Slug: "hd", Name: "HD", Width: 1920, Height: 1080},
	{Slug: "instagram-post", Name: "Instagram Post", Width: 1080, Height: 1080},
	{Slug: "instagram-story", Name: "Instagram Story", Width: 1080, Height: 1920},
	{Slug: "facebook-cover", Name: "Facebook Cover", Width: 820, Height: 312},
	{Slug: "twitter-header", Name: "Twitter Header", Width: 1500, Height: 500},
	{Slug: "a4", Name: "A4", Width: 2480, Height: 3508},
	{Slug: "poster", Name: "Poster", Width: 2400, Height: 3600},
	{Slug: "postcard", Name: "Postcard", Width: 1800, Height: 1200},
}

// DefaultPreset is the canvas new workspaces open with.
const DefaultPreset = "square"

// Presets returns the fixed preset table in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// PresetNames lists the display names.
func PresetNames() []string {
	return lo.Map(presets, func(p Preset, _ int) string { return p.Name })
}

// LookupPreset finds a preset by slug or display name, case-insensitively.
func LookupPreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	p, ok := lo.Find(presets, func(p Preset) bool {
		return p.Slug == key || strings.ToLower(p.Name) == key
	})
	if !ok {
		return Preset{}, &ValidationError{
			Field:  "preset",
			Reason: fmt.Sprintf("no preset named %q", name),
			Err:    ErrUnknownPreset,
		}
	}
	return p, nil
}
