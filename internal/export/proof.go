package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	marotoimage "github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/samber/lo"

	"github.com/printdeck/studio/backend-go/internal/document"
)

// ProofInfo is what the print shop sees on a proof sheet.
type ProofInfo struct {
	Name      string
	Category  string
	Author    string
	Canvas    document.Size
	Counts    map[document.Kind]int
	Thumbnail []byte // PNG
	CreatedAt time.Time
}

// ProofSheet lays out an A4 page with the design thumbnail and its facts.
func ProofSheet(info ProofInfo) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		WithBottomMargin(15).
		Build()
	m := maroto.New(cfg)

	title := lo.Ternary(info.Name == "", "Untitled design", info.Name)
	m.AddRows(row.New(14).Add(col.New(12).Add(
		text.New(title, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
	)))

	if len(info.Thumbnail) > 0 {
		m.AddRows(row.New(120).Add(col.New(12).Add(
			marotoimage.NewFromBytes(info.Thumbnail, extension.Png, props.Rect{Center: true, Percent: 100}),
		)))
	}

	facts := [][2]string{
		{"Category", lo.Ternary(info.Category == "", "-", info.Category)},
		{"Canvas", fmt.Sprintf("%g x %g", info.Canvas.Width, info.Canvas.Height)},
		{"Elements", countsLine(info.Counts)},
	}
	if info.Author != "" {
		facts = append(facts, [2]string{"Author", info.Author})
	}
	if !info.CreatedAt.IsZero() {
		facts = append(facts, [2]string{"Created", info.CreatedAt.UTC().Format(time.RFC3339)})
	}

	label := props.Text{Size: 10, Style: fontstyle.Bold}
	value := props.Text{Size: 10}
	for _, f := range facts {
		m.AddRows(row.New(8).Add(
			col.New(3).Add(text.New(f[0], label)),
			col.New(9).Add(text.New(f[1], value)),
		))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate proof sheet: %w", err)
	}
	return doc.GetBytes(), nil
}

func countsLine(counts map[document.Kind]int) string {
	if len(counts) == 0 {
		return "none"
	}
	kinds := []document.Kind{document.KindText, document.KindImage, document.KindShape}
	parts := lo.FilterMap(kinds, func(k document.Kind, _ int) (string, bool) {
		return fmt.Sprintf("%d %s", counts[k], k), counts[k] > 0
	})
	return strings.Join(parts, ", ")
}
