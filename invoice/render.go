package invoice

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"termomaz/config"
	"termomaz/mappers"
)

var statusText = map[string]string{
	"Pending":   "Pendiente",
	"Completed": "Completado",
	"Cancelled": "Cancelado",
	"Partial":   "Parcial",
	"Paid":      "Pagado",
}

func translate(s string) string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return s
}

// RenderHTML builds a self-contained, printable invoice page for an order.
// Every value coming from the database is HTML-escaped.
func RenderHTML(d mappers.OrderDetailsView, shop config.InvoiceConfig) string {
	esc := html.EscapeString
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`)
	sb.WriteString(fmt.Sprintf(`<title>Comprobante %s</title>`, esc(mappers.OrderLabel(d.Order))))
	sb.WriteString(`<style>
    body { font-family: sans-serif; font-size: 12px; margin: 24px; }
    h1 { font-size: 18px; margin: 0; }
    table { width: 100%; border-collapse: collapse; margin-top: 12px; }
    th, td { border-bottom: 1px solid #ccc; padding: 4px 6px; }
    .right { text-align: right; }
    .totals td { border: none; }
    </style></head><body>`)

	sb.WriteString(`<header>`)
	sb.WriteString(fmt.Sprintf(`<h1>%s</h1>`, esc(shop.ShopName)))
	if shop.ShopAddress != "" {
		sb.WriteString(fmt.Sprintf(`<div>%s</div>`, esc(shop.ShopAddress)))
	}
	sb.WriteString(`</header>`)

	sb.WriteString(`<section class="meta">`)
	sb.WriteString(fmt.Sprintf(`<div>Comprobante: <strong>%s</strong></div>`, esc(mappers.OrderLabel(d.Order))))
	sb.WriteString(fmt.Sprintf(`<div>Fecha: %s</div>`, d.Date.UTC().Format("02/01/2006 15:04")))
	sb.WriteString(fmt.Sprintf(`<div>Cliente: %s</div>`, esc(mappers.ClientLabel(d.ClientName))))
	if d.ShippingAddress != "" {
		sb.WriteString(fmt.Sprintf(`<div>Envío: %s</div>`, esc(d.ShippingAddress)))
	}
	sb.WriteString(fmt.Sprintf(`<div>Estado: %s / Pago: %s</div>`, esc(translate(d.Status)), esc(translate(d.PaymentStatus))))
	sb.WriteString(`</section>`)

	sb.WriteString(`<table><thead><tr>`)
	sb.WriteString(`<th>Producto</th><th class="right">Cantidad</th><th class="right">Precio</th><th class="right">Subtotal</th>`)
	sb.WriteString(`</tr></thead><tbody>`)
	if len(d.Items) == 0 {
		sb.WriteString(`<tr><td colspan="4">Sin artículos.</td></tr>`)
	}
	for _, it := range d.Items {
		sb.WriteString(`<tr>`)
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(it.ProductName)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, strconv.Itoa(it.Quantity)))
		sb.WriteString(fmt.Sprintf(`<td class="right">$%s</td>`, it.PriceAtTime.StringFixed(2)))
		sb.WriteString(fmt.Sprintf(`<td class="right">$%s</td>`, it.Subtotal().StringFixed(2)))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)

	sb.WriteString(`<table class="totals">`)
	sb.WriteString(fmt.Sprintf(`<tr><td class="right">Total</td><td class="right"><strong>$%s</strong></td></tr>`, d.Total.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`<tr><td class="right">Pagado</td><td class="right">$%s</td></tr>`, d.PaidAmount.StringFixed(2)))
	sb.WriteString(fmt.Sprintf(`<tr><td class="right">Saldo</td><td class="right">$%s</td></tr>`, d.Balance.StringFixed(2)))
	sb.WriteString(`</table>`)

	if len(d.Payments) > 0 {
		sb.WriteString(`<table><thead><tr><th>Pago</th><th>Medio</th><th class="right">Monto</th></tr></thead><tbody>`)
		for _, p := range d.Payments {
			sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td class="right">$%s</td></tr>`,
				p.PaidAt.UTC().Format("02/01/2006 15:04"), esc(p.Method), p.Amount.StringFixed(2)))
		}
		sb.WriteString(`</tbody></table>`)
	}

	sb.WriteString(`</body></html>`)
	return sb.String()
}
