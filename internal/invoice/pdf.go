package invoice

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/models"
	"dineflow/internal/store"

	"github.com/signintech/gopdf"
)

const (
	fontFamily = "body"
	marginX    = 40.0
	amountX    = 440.0
)

// RenderPDF lays the invoice out on one A4 page.
func (s *Service) RenderPDF(ctx context.Context, tenantID, id string) ([]byte, error) {
	inv, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	o, err := s.DB.GetOrder(ctx, tenantID, inv.OrderID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	tenant, err := s.DB.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	brand, err := s.DB.GetBrand(ctx, tenantID)
	if err != nil && !store.IsNotFound(err) {
		return nil, fmt.Errorf("load brand: %w", err)
	}
	return renderPDF(s.FontPath, tenant, brand, inv, o)
}

func renderPDF(fontPath string, tenant *models.Tenant, brand *models.BrandSettings, inv *models.Invoice, o *models.Order) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont(fontFamily, fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	r, g, b := uint8(17), uint8(24), uint8(39)
	if brand != nil {
		r, g, b = hexColor(brand.PrimaryColor, r, g, b)
	}

	if err := pdf.SetFont(fontFamily, "", 20); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetTextColor(r, g, b)
	text(pdf, marginX, 40, tenant.Name)
	pdf.SetTextColor(0, 0, 0)

	_ = pdf.SetFont(fontFamily, "", 11)
	y := 70.0
	for _, line := range []string{tenant.Address, tenant.Phone, tenant.Email} {
		if strings.TrimSpace(line) == "" {
			continue
		}
		text(pdf, marginX, y, line)
		y += 14
	}

	y += 10
	text(pdf, marginX, y, "Invoice "+inv.InvoiceNumber)
	text(pdf, amountX-60, y, inv.CreatedAt.Format("2006-01-02 15:04"))
	y += 14
	text(pdf, marginX, y, "Order "+o.OrderNumber)
	if o.Table != nil {
		text(pdf, amountX-60, y, o.Table.Name)
	}
	y += 24

	pdf.SetLineWidth(0.5)
	pdf.Line(marginX, y, 555, y)
	y += 10

	for _, it := range o.Items {
		text(pdf, marginX, y, fmt.Sprintf("%d x %s", it.Quantity, it.Name))
		text(pdf, amountX, y, money(it.LineTotal, inv.Currency))
		y += 16
		for _, c := range it.Customizations {
			text(pdf, marginX+16, y, "+ "+c.Name)
			y += 14
		}
	}

	y += 6
	pdf.Line(marginX, y, 555, y)
	y += 10

	row := func(label string, amount float64) {
		text(pdf, amountX-160, y, label)
		text(pdf, amountX, y, money(amount, inv.Currency))
		y += 16
	}
	row("Subtotal", inv.Subtotal)
	for _, l := range inv.TaxBreakdown {
		row(fmt.Sprintf("%s (%.2f%%)", l.Name, l.Rate), l.Amount)
	}
	if inv.Tip > 0 {
		row("Tip", inv.Tip)
	}
	_ = pdf.SetFont(fontFamily, "", 13)
	row("Total", inv.Total)

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func text(pdf *gopdf.GoPdf, x, y float64, s string) {
	pdf.SetXY(x, y)
	_ = pdf.Cell(nil, s)
}

func money(v float64, currency string) string {
	return fmt.Sprintf("%s %.2f", currency, v)
}

// hexColor parses #rrggbb, falling back to the given colour.
func hexColor(hex string, r, g, b uint8) (uint8, uint8, uint8) {
	var pr, pg, pb uint8
	if n, err := fmt.Sscanf(strings.TrimPrefix(hex, "#"), "%02x%02x%02x", &pr, &pg, &pb); err != nil || n != 3 {
		return r, g, b
	}
	return pr, pg, pb
}
