package notifications

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// VoucherData is the booking/occurrence data rendered into the voucher
type VoucherData struct {
	BookingRef  string
	TripName    string
	BuyerName   string
	StartDate   time.Time
	EndDate     time.Time
	Quantity    int
	TotalPrice  float64
	Currency    string
	ConfirmedAt time.Time
}

const voucherTemplate = `==============================================
               TRAVEL VOUCHER
==============================================

Booking reference: {{.BookingRef}}
Issued:            {{.ConfirmedAt.Format "2006-01-02 15:04 MST"}}

Traveler:          {{.BuyerName}}
Trip:              {{.TripName}}
Departure:         {{.StartDate.Format "Monday, 2 January 2006"}}
Return:            {{.EndDate.Format "Monday, 2 January 2006"}}
Travelers:         {{.Quantity}}

Total paid:        {{printf "%.2f" .TotalPrice}} {{.Currency}}

Present this voucher together with a valid ID at
the meeting point. Keep the booking reference at
hand for any support request.
==============================================
`

// VoucherRenderer produces the attachment bytes for confirmation mail
type VoucherRenderer struct {
	tmpl *template.Template
}

func NewVoucherRenderer() *VoucherRenderer {
	return &VoucherRenderer{
		tmpl: template.Must(template.New("voucher").Parse(voucherTemplate)),
	}
}

// Render returns the voucher as a plain-text attachment
func (r *VoucherRenderer) Render(data VoucherData) (*Attachment, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render voucher: %w", err)
	}
	return &Attachment{
		Filename: fmt.Sprintf("voucher-%s.txt", data.BookingRef),
		MIMEType: "text/plain; charset=utf-8",
		Data:     buf.Bytes(),
	}, nil
}
