package report

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// RenderPDF writes the audit summary as a PDF document.
func RenderPDF(s *Summary, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("TLC Congestion Toll Audit", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, fmt.Sprintf("TLC Congestion Toll Audit - %d", s.Year), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	heading := func(text string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 9, text, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	bullet := func(text string) {
		pdf.CellFormat(0, 7, "- "+text, "", 1, "L", false, 0, "")
	}

	heading("Executive Summary")
	bullet(fmt.Sprintf("Total Estimated Congestion Surcharge Revenue: $%.2f", s.TotalSurcharge))
	if s.Elasticity != nil {
		bullet(fmt.Sprintf("Rain Elasticity: %s (slope %.2f trips/mm, r=%.3f, p=%.5f)",
			s.Elasticity.Classification, s.Elasticity.Slope, s.Elasticity.R, s.Elasticity.PValue))
	} else {
		bullet("Rain Elasticity: " + s.ElasticityNote)
	}
	pdf.Ln(4)

	heading(fmt.Sprintf("Top-%d Vendors by Trip Volume", len(s.TopVendors)))
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(120, 120, 120)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(40, 8, "vendor_id", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "total_trips", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, v := range s.TopVendors {
		pdf.CellFormat(40, 8, fmt.Sprintf("%d", v.VendorID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, fmt.Sprintf("%d", v.TotalTrips), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	if len(s.SyntheticPeriods) > 0 {
		heading("Data Disclosure")
		pdf.MultiCell(0, 6, "The following periods are estimated (imputed), not observed: "+
			strings.Join(s.SyntheticPeriods, ", ")+".", "", "L", false)
		pdf.Ln(4)
	}
	for _, note := range s.PartialNotes {
		pdf.MultiCell(0, 6, "Partial data: "+note, "", "L", false)
	}
	if len(s.PartialNotes) > 0 {
		pdf.Ln(4)
	}

	heading("Policy Recommendation")
	pdf.MultiCell(0, 6, s.Recommendation, "", "L", false)

	return pdf.OutputFileAndClose(path)
}
