package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
)

// Iraq keeps UTC+3 all year.
var baghdad = time.FixedZone("Asia/Baghdad", 3*60*60)

const storeName = "Mersal"

func orderRef(s Summary) string {
	if s.OrderID == "" {
		return "-"
	}
	return s.OrderID
}

// TelegramText is the HTML message posted to the operator chat.
func TelegramText(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>New Order Received - %s - مرسال</b>\n\n", storeName)
	fmt.Fprintf(&b, "👤 <b>Customer Name:</b> %s\n", html.EscapeString(s.CustomerName))
	fmt.Fprintf(&b, "📞 <b>Phone:</b> %s\n", html.EscapeString(s.Phone))
	fmt.Fprintf(&b, "📍 <b>Address:</b> %s\n\n", html.EscapeString(s.Address))
	b.WriteString("--------------------------\n🛒 <b>Products:</b>\n")
	for _, it := range s.Items {
		fmt.Fprintf(&b, "• %s (x%d) - <b>%s</b>\n", html.EscapeString(it.Name), it.Quantity, pricing.FormatIQD(it.UnitPrice))
	}
	b.WriteString("--------------------------\n\n")
	fmt.Fprintf(&b, "💰 <b>Total Price:</b> %s / <b>%s</b>\n", pricing.FormatUSD(s.TotalUSD), pricing.FormatIQD(s.Total))
	fmt.Fprintf(&b, "🕒 <b>Order Time:</b> %s", s.PlacedAt.In(baghdad).Format("2006-01-02 15:04"))
	if !s.Persisted {
		b.WriteString("\n\n⚠️ <b>Order was NOT saved to the database.</b>")
	}
	return b.String()
}

// StatusFooter is appended to the operator message once the order is
// resolved from the chat.
func StatusFooter(confirmed bool) string {
	label := "❌ CANCELLED"
	if confirmed {
		label = "✅ CONFIRMED"
	}
	return "\n\n--------------------------\n⚡️ <b>Status updated via Telegram: " + label + "</b>"
}

func EmailSubject(s Summary) string {
	return fmt.Sprintf("🎮 New Order: %s - %s", s.CustomerName, pricing.FormatIQD(s.Total))
}

var emailTmpl = template.Must(template.New("email").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #00d4ff;">🚨 New Order Received - {{.Store}}</h2>
<div style="background: #f5f5f5; padding: 20px; border-radius: 8px;">
<h3>Customer Information</h3>
<p><strong>Name:</strong> {{.S.CustomerName}}</p>
<p><strong>Phone:</strong> {{.S.Phone}}</p>
<p><strong>Address:</strong> {{.S.Address}}</p>
<p><strong>Order ID:</strong> {{.Ref}}</p>
</div>
<div style="padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
<h3>Order Details</h3>
<pre>{{range .Lines}}{{.}}
{{end}}</pre>
<h2 style="color: #00d4ff;">Total IQD: {{.TotalIQD}}</h2>
<h3 style="color: #666;">Total USD: {{.TotalUSD}}</h3>
</div>
{{if not .S.Persisted}}<p style="color: #c00;"><strong>This order could not be saved. Record it manually.</strong></p>{{end}}
</div>`))

func EmailHTML(s Summary) (string, error) {
	lines := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, fmt.Sprintf("%s (x%d) - %s (%s)", it.Name, it.Quantity,
			pricing.FormatIQD(it.UnitPrice), pricing.FormatUSD(it.UnitPriceUSD)))
	}
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, map[string]any{
		"Store":    storeName,
		"S":        s,
		"Ref":      orderRef(s),
		"Lines":    lines,
		"TotalIQD": pricing.FormatIQD(s.Total),
		"TotalUSD": pricing.FormatUSD(s.TotalUSD),
	})
	return buf.String(), err
}

func itemLines(s Summary) string {
	var b strings.Builder
	for i, it := range s.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s (x%d) - %s", it.Name, it.Quantity, pricing.FormatIQD(it.UnitPrice*int64(it.Quantity)))
	}
	return b.String()
}

func WhatsAppAdminText(s Summary) string {
	return fmt.Sprintf("🚨 *New Order Received* 🚨\n\n👤 *Customer:* %s\n📞 *Phone:* %s\n📍 *Address:* %s\n\n🛒 *Order Details:*\n%s\n\n💰 *Total:* %s (%s)",
		s.CustomerName, s.Phone, s.Address, itemLines(s), pricing.FormatIQD(s.Total), pricing.FormatUSD(s.TotalUSD))
}

func WhatsAppCustomerText(s Summary) string {
	return fmt.Sprintf("👋 Hi %s,\n\nThank you for your order at *%s*! 🎮\n\nWe have received your order for:\n%s\n\n💰 *Total: %s*\n\nWe will process it shortly.",
		s.CustomerName, storeName, itemLines(s), pricing.FormatIQD(s.Total))
}
