package infra

// pdf.go: admin summary report using go-pdf/fpdf.
// A4 portrait with:
//   - Title and generation timestamp
//   - Dashboard counters (users, products, roles)
//   - Hourly product creation for the trailing 24h
//   - Top owners by product count and by inventory value

import (
	"fmt"
	"io"
	"sort"

	"storekeep/internal/dto"

	"github.com/go-pdf/fpdf"
)

// WriteReportPDF renders the dashboard and chart data as a PDF into w.
func WriteReportPDF(w io.Writer, dash *dto.DashboardResponse, charts *dto.ChartsResponse) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Inventory report", true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Inventory report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Generated "+charts.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Counters ─────────────────────────────────────────────────────────────
	section(pdf, contentW, "Overview")
	counters := [][2]string{
		{"Users", fmt.Sprint(dash.TotalUsers)},
		{"Products", fmt.Sprint(dash.TotalProducts)},
		{"Administrators", fmt.Sprint(dash.TotalAdmins)},
		{"Active users", fmt.Sprint(dash.ActiveUsers)},
		{"Users in trash", fmt.Sprint(dash.DeletedUsers)},
	}
	roles := make([]string, 0, len(dash.UsersByRole))
	for r := range dash.UsersByRole {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, r := range roles {
		counters = append(counters, [2]string{"Role " + r, fmt.Sprint(dash.UsersByRole[r])})
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, c := range counters {
		pdf.CellFormat(contentW*0.6, 6, c[0], "B", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 6, c[1], "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Hourly creation ──────────────────────────────────────────────────────
	section(pdf, contentW, "Products added in the last 24 hours (UTC)")
	pdf.SetFont("Helvetica", "", 7)
	cellW := contentW / 12
	for row := 0; row < 2; row++ {
		for i := row * 12; i < row*12+12 && i < len(charts.ProductsByHour); i++ {
			pdf.CellFormat(cellW, 5, charts.ProductsByHour[i].Hour, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		for i := row * 12; i < row*12+12 && i < len(charts.ProductsByHour); i++ {
			pdf.CellFormat(cellW, 5, fmt.Sprint(charts.ProductsByHour[i].Count), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	ownerTable(pdf, contentW, "Top owners by product count", charts.TopByCount)
	ownerTable(pdf, contentW, "Top owners by inventory value", charts.TopByValue)

	return pdf.Output(w)
}

func section(pdf *fpdf.Fpdf, w float64, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(w, 7, title, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func ownerTable(pdf *fpdf.Fpdf, w float64, title string, rows []dto.OwnerAggregate) {
	section(pdf, w, title)
	col1, col2, col3 := w*0.5, w*0.2, w*0.3

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "User", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Products", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 5, "Value", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	if len(rows) == 0 {
		pdf.CellFormat(w, 5, "No data", "", 1, "L", false, 0, "")
	}
	for _, r := range rows {
		name := r.Username
		if len(name) > 40 {
			name = name[:39] + "..."
		}
		pdf.CellFormat(col1, 5, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprint(r.ProductCount), "", 0, "R", false, 0, "")
		pdf.CellFormat(col3, 5, r.TotalValue.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}
