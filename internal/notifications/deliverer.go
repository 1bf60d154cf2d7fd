package notifications

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"voyago/pkg/logger"
)

const bookingConfirmedBody = `<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Your trip is booked!</h2>
  <p>Hi {{.RecipientName}},</p>
  <p>Your payment went through and your spot on <strong>{{.TripName}}</strong> is confirmed.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><strong>Booking reference</strong></td><td>{{.BookingRef}}</td></tr>
    <tr><td><strong>Departure</strong></td><td>{{.StartDate}}</td></tr>
    <tr><td><strong>Return</strong></td><td>{{.EndDate}}</td></tr>
    <tr><td><strong>Travelers</strong></td><td>{{.Quantity}}</td></tr>
    <tr><td><strong>Total paid</strong></td><td>{{.TotalPrice}} {{.Currency}}</td></tr>
  </table>
  <p>Your voucher is attached. See you there!</p>
</body>
</html>`

const waitlistInvitationBody = `<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>A spot opened up</h2>
  <p>Hi {{.RecipientName}},</p>
  <p>{{.Quantity}} spot(s) on <strong>{{.TripName}}</strong> (departing {{.StartDate}}) just became available and we are holding them for you.</p>
  {{if .WindowEndsAt}}<p>Complete your booking before <strong>{{.WindowEndsAt}}</strong> or the hold is released to the next person in line.</p>{{end}}
  <p>Head back to the trip page to check out.</p>
</body>
</html>`

// Deliverer turns a notification into an outgoing email. It sits on
// the consuming side of the topic; the publishing side never touches
// SMTP.
type Deliverer struct {
	emailSvc     EmailService
	voucher      *VoucherRenderer
	confirmTmpl  *template.Template
	waitlistTmpl *template.Template
	log          *logger.Logger
}

func NewDeliverer(emailSvc EmailService) *Deliverer {
	return &Deliverer{
		emailSvc:     emailSvc,
		voucher:      NewVoucherRenderer(),
		confirmTmpl:  template.Must(template.New("booking_confirmed").Parse(bookingConfirmedBody)),
		waitlistTmpl: template.Must(template.New("waitlist_invitation").Parse(waitlistInvitationBody)),
		log:          logger.GetDefault(),
	}
}

func (d *Deliverer) Deliver(ctx context.Context, notification *Notification) error {
	switch notification.Type {
	case NotificationTypeBookingConfirmed:
		return d.deliverBookingConfirmed(ctx, notification)
	case NotificationTypeWaitlistSpotAvailable:
		return d.deliverWaitlistInvitation(ctx, notification)
	default:
		return fmt.Errorf("unknown notification type: %s", notification.Type)
	}
}

func (d *Deliverer) deliverBookingConfirmed(ctx context.Context, n *Notification) error {
	startDate := templateTime(n.TemplateData, "start_date")
	endDate := templateTime(n.TemplateData, "end_date")
	confirmedAt := templateTime(n.TemplateData, "confirmed_at")
	quantity := templateInt(n.TemplateData, "quantity")
	totalPrice := templateFloat(n.TemplateData, "total_price")

	body, err := renderBody(d.confirmTmpl, map[string]string{
		"RecipientName": recipientGreeting(n),
		"TripName":      templateString(n.TemplateData, "trip_name"),
		"BookingRef":    templateString(n.TemplateData, "booking_ref"),
		"StartDate":     startDate.Format("Monday, 2 January 2006"),
		"EndDate":       endDate.Format("Monday, 2 January 2006"),
		"Quantity":      templateString(n.TemplateData, "quantity"),
		"TotalPrice":    templateString(n.TemplateData, "total_price"),
		"Currency":      templateString(n.TemplateData, "currency"),
	})
	if err != nil {
		return err
	}

	attachment, err := d.voucher.Render(VoucherData{
		BookingRef:  templateString(n.TemplateData, "booking_ref"),
		TripName:    templateString(n.TemplateData, "trip_name"),
		BuyerName:   recipientGreeting(n),
		StartDate:   startDate,
		EndDate:     endDate,
		Quantity:    quantity,
		TotalPrice:  totalPrice,
		Currency:    templateString(n.TemplateData, "currency"),
		ConfirmedAt: confirmedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to build voucher: %w", err)
	}

	if err := d.emailSvc.Send(ctx, n.RecipientEmail, n.Subject, body, attachment); err != nil {
		return fmt.Errorf("failed to deliver booking confirmation: %w", err)
	}

	d.log.InfoWithContext(ctx, "Booking confirmation delivered", map[string]interface{}{
		"notification_id": n.ID.String(),
		"recipient":       n.RecipientEmail,
	})
	return nil
}

func (d *Deliverer) deliverWaitlistInvitation(ctx context.Context, n *Notification) error {
	startDate := templateTime(n.TemplateData, "start_date")

	windowEndsAt := ""
	if templateString(n.TemplateData, "window_ends_at") != "" {
		windowEndsAt = templateTime(n.TemplateData, "window_ends_at").Format("15:04 MST, 2 January 2006")
	}

	body, err := renderBody(d.waitlistTmpl, map[string]string{
		"RecipientName": recipientGreeting(n),
		"TripName":      templateString(n.TemplateData, "trip_name"),
		"StartDate":     startDate.Format("Monday, 2 January 2006"),
		"Quantity":      templateString(n.TemplateData, "quantity"),
		"WindowEndsAt":  windowEndsAt,
	})
	if err != nil {
		return err
	}

	if err := d.emailSvc.Send(ctx, n.RecipientEmail, n.Subject, body, nil); err != nil {
		return fmt.Errorf("failed to deliver waitlist invitation: %w", err)
	}

	d.log.InfoWithContext(ctx, "Waitlist invitation delivered", map[string]interface{}{
		"notification_id": n.ID.String(),
		"recipient":       n.RecipientEmail,
	})
	return nil
}

func renderBody(tmpl *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}

func recipientGreeting(n *Notification) string {
	if n.RecipientName != "" {
		return n.RecipientName
	}
	return "traveler"
}

// Template data round-trips through JSON, so everything is stored and
// read back as strings.
func templateString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func templateTime(data map[string]interface{}, key string) time.Time {
	t, err := time.Parse(time.RFC3339, templateString(data, key))
	if err != nil {
		return time.Time{}
	}
	return t
}

func templateInt(data map[string]interface{}, key string) int {
	var v int
	fmt.Sscanf(templateString(data, key), "%d", &v)
	return v
}

func templateFloat(data map[string]interface{}, key string) float64 {
	var v float64
	fmt.Sscanf(templateString(data, key), "%f", &v)
	return v
}
