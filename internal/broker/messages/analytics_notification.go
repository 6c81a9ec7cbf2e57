package messages

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// AnalyticsNotification is fire-and-forget: nobody acknowledges it and loss is tolerated.
type AnalyticsNotification struct {
	NotificationID string   `json:"notificationId"`
	RequestID      string   `json:"requestId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Priority       Priority `json:"priority"`
}
