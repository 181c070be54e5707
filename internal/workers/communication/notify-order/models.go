// internal/workers/communication/notify-order/models.go
package notifyorder

type Input struct {
	Room           string `json:"room"`
	SessionID      string `json:"sessionId"`
	CallerIdentity string `json:"callerIdentity,omitempty"`
	OrderDetails   string `json:"orderDetails"`
	ConfirmedAt    string `json:"confirmedAt"` // ISO 8601
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
