package document

import "github.com/samber/lo"

// NewSampleScene builds a business-card design used by the CLI and the
// browser playground.
func NewSampleScene() *Scene {
	preset, _ := LookupPreset("business-card")
	s, _ := NewScene(preset.Size())
	_ = s.SetBackground("#ffffff")

	band, _ := s.NewElement(KindShape, Patch{
		X: lo.ToPtr(0.0), Y: lo.ToPtr(0.0),
		Width: lo.ToPtr(1050.0), Height: lo.ToPtr(120.0),
		Shape: &ShapePatch{FillColor: lo.ToPtr("#1e3a8a")},
	})
	_ = s.Add(band)

	badge, _ := s.NewElement(KindShape, Patch{
		X: lo.ToPtr(880.0), Y: lo.ToPtr(380.0),
		Width: lo.ToPtr(120.0), Height: lo.ToPtr(120.0),
		Shape: &ShapePatch{
			Variant:     lo.ToPtr(ShapeHexagon),
			FillColor:   lo.ToPtr("#f59e0b"),
			BorderWidth: lo.ToPtr(4.0),
			BorderColor: lo.ToPtr("#1e3a8a"),
		},
	})
	_ = s.Add(badge)

	name, _ := s.NewElement(KindText, Patch{
		X: lo.ToPtr(60.0), Y: lo.ToPtr(200.0),
		Width: lo.ToPtr(700.0), Height: lo.ToPtr(70.0),
		Text: &TextPatch{
			Content:    lo.ToPtr("Jordan Avery"),
			FontSize:   lo.ToPtr(56.0),
			FontWeight: lo.ToPtr(FontWeightBold),
			Color:      lo.ToPtr("#111827"),
		},
	})
	_ = s.Add(name)

	title, _ := s.NewElement(KindText, Patch{
		X: lo.ToPtr(60.0), Y: lo.ToPtr(290.0),
		Width: lo.ToPtr(700.0), Height: lo.ToPtr(90.0),
		Text: &TextPatch{
			Content:   lo.ToPtr("Print Production Lead\nhello@printdeck.example"),
			FontSize:  lo.ToPtr(28.0),
			FontStyle: lo.ToPtr(FontStyleItalic),
			Color:     lo.ToPtr("#374151"),
		},
	})
	_ = s.Add(title)

	return s
}
