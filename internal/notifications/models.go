package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeBookingConfirmed      NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeWaitlistSpotAvailable NotificationType = "WAITLIST_SPOT_AVAILABLE"
)

// Notification is the message published to the notification topic.
// Voucher rendering happens at delivery time, not at publish time, so
// the payload stays small on the wire.
type Notification struct {
	ID             uuid.UUID        `json:"id"`
	Type           NotificationType `json:"type"`
	RecipientID    uuid.UUID        `json:"recipient_id"`
	RecipientEmail string           `json:"recipient_email"`
	RecipientName  string           `json:"recipient_name"`
	Subject        string           `json:"subject"`

	TemplateData map[string]interface{} `json:"template_data"`

	BookingID       *uuid.UUID `json:"booking_id,omitempty"`
	OccurrenceID    *uuid.UUID `json:"occurrence_id,omitempty"`
	WaitlistEntryID *uuid.UUID `json:"waitlist_entry_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func NotificationFromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Attachment is raw document bytes attached to an outgoing email
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}
