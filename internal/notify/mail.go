package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ariefcatur/holycat-orders/internal/orders"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Log  *slog.Logger
	From string
}

func (l LogMailer) Send(ctx context.Context, m Message) error {
	if m.From == "" {
		m.From = l.From
	}
	l.Log.Info("mail sent",
		slog.String("from", m.From),
		slog.String("to", m.To),
		slog.String("subject", m.Subject),
		slog.Int("body_len", len(m.Body)),
	)
	return nil
}

// Compose renders the customer message for a status event. PACKED and
// unknown statuses have no message.
func Compose(p orders.StatusChangedPayload) (Message, bool) {
	name := p.UserName
	if name == "" {
		name = p.UserEmail
	}
	var subject string
	var body strings.Builder
	fmt.Fprintf(&body, "Halo %s,\n\n", name)

	switch p.To {
	case orders.StatusAwaitingPayment:
		subject = fmt.Sprintf("Pesanan #%s Menunggu Pembayaran", p.OrderID)
		fmt.Fprintf(&body, "Pesanan Anda #%s telah kami terima dan menunggu pembayaran.\nTotal: %d\n", p.OrderID, p.Total)
	case orders.StatusProcessing:
		subject = fmt.Sprintf("Pesanan #%s Telah Dibayar dan Sedang Diproses", p.OrderID)
		fmt.Fprintf(&body, "Pesanan Anda #%s sedang diproses oleh tim kami.\n", p.OrderID)
	case orders.StatusShipped:
		subject = fmt.Sprintf("Pesanan #%s Telah Dikirim", p.OrderID)
		fmt.Fprintf(&body, "Pesanan Anda #%s telah dikirim.\nKurir: %s\nNo. Resi: %s\n", p.OrderID, p.Courier, p.TrackingNumber)
	case orders.StatusCompleted:
		subject = fmt.Sprintf("Pesanan #%s Selesai", p.OrderID)
		fmt.Fprintf(&body, "Pesanan Anda #%s telah selesai.\n", p.OrderID)
	case orders.StatusCancelled:
		subject = fmt.Sprintf("Pesanan #%s Dibatalkan", p.OrderID)
		fmt.Fprintf(&body, "Pesanan Anda #%s telah dibatalkan.\n", p.OrderID)
	default:
		return Message{}, false
	}
	if len(p.Items) > 0 {
		body.WriteString("\nRincian:\n")
		for _, it := range p.Items {
			fmt.Fprintf(&body, "- %s x%d @ %d\n", it.Title, it.Qty, it.UnitPrice)
		}
	}
	body.WriteString("\nTerima kasih telah berbelanja di Holycat!\n")
	return Message{To: p.UserEmail, Subject: subject, Body: body.String()}, true
}
