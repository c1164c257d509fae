package itinerary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"tripline/internal/domain"
)

// WritePDF renders the plan summary, schedule and budget. When reference is
// set it is printed and encoded as a QR code in the top-right corner.
func WritePDF(w io.Writer, plan domain.TripPlan, reference string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	title := plan.Name
	if title == "" {
		title = "Trip to " + plan.DestinationName()
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	line := func(format string, args ...any) {
		pdf.Cell(0, 7, tr(fmt.Sprintf(format, args...)))
		pdf.Ln(7)
	}
	if d := plan.Destination; d != nil {
		line("Destination: %s, %s", d.Name, d.Country)
		if d.BestTime != "" {
			line("Best time: %s   Average temperature: %s", d.BestTime, d.AvgTemp)
		}
	}
	if a := plan.Accommodation; a != nil {
		line("Stay: %s (%s) at $%.0f/night", a.Name, a.RoomType, a.Price)
	}
	if reference != "" {
		line("Reference: %s", reference)
		png, err := qrcode.Encode(reference, qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("qr code: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("ref", opts, bytes.NewReader(png))
		pdf.ImageOptions("ref", 160, 10, 35, 35, false, opts, 0, "")
	}
	pdf.Ln(6)

	for _, day := range plan.Itinerary {
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(0, 8, tr(day.Label))
		pdf.Ln(8)
		for _, slot := range day.Slots {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(25, 6, tr(slot.Time), "", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 11)
			for i, act := range slot.Activities {
				if i > 0 {
					pdf.CellFormat(25, 6, "", "", 0, "L", false, 0, "")
				}
				pdf.MultiCell(0, 6, tr("- "+act), "", "L", false)
			}
		}
		pdf.Ln(3)
	}

	if b := plan.Budget; b != nil {
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(0, 8, "Estimated budget")
		pdf.Ln(9)
		pdf.SetFont("Arial", "", 11)
		row := func(label string, v float64) {
			pdf.CellFormat(70, 7, label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, fmt.Sprintf("$%.2f", v), "1", 1, "R", false, 0, "")
		}
		row(fmt.Sprintf("Accommodation (%d nights)", b.Nights), b.Accommodation)
		row(fmt.Sprintf("Dining (%d restaurants)", len(plan.Restaurants)), b.Dining)
		row("Experiences", b.Experiences)
		row("Local transport", b.LocalTransport)
		pdf.SetFont("Arial", "B", 11)
		row("Total", b.Total)
	}
	return pdf.Output(w)
}
