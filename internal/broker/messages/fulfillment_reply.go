package messages

type ReplyStatus string

const (
	ReplyStatusAccepted ReplyStatus = "ACCEPTED"
	ReplyStatusRejected ReplyStatus = "REJECTED"
	// ReplyStatusPartial зарезервирован в контракте, сейчас не выставляется.
	ReplyStatusPartial ReplyStatus = "PARTIAL"
)

// RejectionInvalidRequestedAt is the reason sent when requestedAt is not a timestamp.
const RejectionInvalidRequestedAt = "Invalid requestedAt"

// FulfillmentReply: ответ на DispatchCommand, коррелируется по requestId.
type FulfillmentReply struct {
	RequestID       string      `json:"requestId"`
	OrderID         string      `json:"orderId"`
	Status          ReplyStatus `json:"status"`
	TrackingID      *string     `json:"trackingId,omitempty"`
	RejectionReason *string     `json:"rejectionReason,omitempty"`
	RepliedAt       string      `json:"repliedAt"`
}
