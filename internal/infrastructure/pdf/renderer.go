// Package pdf renders report documents with maroto.
package pdf

import (
	"fmt"
	"io"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"github.com/tickwise/timetrack/internal/core/report"
)

var (
	rowGrid    = []uint{2, 3, 4, 2, 1}
	zebra      = color.Color{Red: 240, Green: 240, Blue: 240}
	headerSize = 9.0
)

// Renderer turns a report.Document into an A4 PDF: title and period on every
// page, one table per document page, totals and per-project breakdown at the end.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) Render(w io.Writer, doc *report.Document) error {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 10, 20)

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text(doc.Title, props.Text{Top: 3, Style: consts.Bold, Align: consts.Center, Size: 16})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(doc.Period, props.Text{Top: 1, Style: consts.Normal, Align: consts.Center, Size: 11})
			})
		})
	})

	for i, page := range doc.Pages {
		if i > 0 {
			m.AddPage()
		}
		if len(page.Rows) == 0 {
			m.Row(10, func() {
				m.Col(12, func() {
					m.Text("No entries in this period.", props.Text{Top: 3, Align: consts.Center, Size: 10})
				})
			})
			continue
		}
		rows := make([][]string, len(page.Rows))
		for j, row := range page.Rows {
			rows[j] = row.Fields()
		}
		m.TableList(doc.Header, rows, tableProps(rowGrid))
	}

	m.Row(8, func() {})
	m.Row(8, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Total: %s h", doc.Totals.TotalHours), props.Text{Style: consts.Bold, Align: consts.Right, Size: 12})
		})
	})
	m.Row(8, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Billable: %s h", doc.Totals.BillableHours), props.Text{Style: consts.Bold, Align: consts.Right, Size: 12})
		})
	})

	if len(doc.ByProject) > 0 {
		breakdown := make([][]string, len(doc.ByProject))
		for i, p := range doc.ByProject {
			breakdown[i] = []string{p.Project, p.Hours}
		}
		m.Row(6, func() {})
		m.TableList([]string{"project", "hours"}, breakdown, tableProps([]uint{8, 4}))
	}

	buf, err := m.Output()
	if err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func tableProps(grid []uint) props.TableList {
	bg := zebra
	return props.TableList{
		HeaderProp: props.TableListContent{
			Size:      headerSize,
			GridSizes: grid,
		},
		ContentProp: props.TableListContent{
			Size:      headerSize,
			GridSizes: grid,
		},
		Align:                consts.Left,
		AlternatedBackground: &bg,
		HeaderContentSpace:   1,
		Line:                 false,
	}
}
