package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ShipmentStatus string

const (
	ShipmentStatusCreated   ShipmentStatus = "CREATED"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusDelayed   ShipmentStatus = "DELAYED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

// DefaultCarrier подставляется, когда перевозчик не указан.
const DefaultCarrier = "UPS"

const trackingNumberPrefix = "TRK-"

type Shipment struct {
	ShipmentID     string
	OrderID        string
	Carrier        string
	TrackingNumber string
	Status         ShipmentStatus
	CancelledAt    *time.Time
}

// ShipmentView is the externally visible projection of a Shipment.
type ShipmentView struct {
	ShipmentID     string         `json:"shipmentId"`
	OrderID        string         `json:"orderId"`
	Carrier        string         `json:"carrier"`
	TrackingNumber string         `json:"trackingNumber"`
	Status         ShipmentStatus `json:"status"`
}

func (s *Shipment) View() ShipmentView {
	return ShipmentView{
		ShipmentID:     s.ShipmentID,
		OrderID:        s.OrderID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Status:         s.Status,
	}
}

func NewShipmentID() string {
	return uuid.NewString()
}

// TrackingNumberFor is a pure function of the shipment id: TRK- plus the first
// 12 hex chars of sha256(id), upper-cased.
func TrackingNumberFor(shipmentID string) string {
	sum := sha256.Sum256([]byte(shipmentID))
	return trackingNumberPrefix + strings.ToUpper(hex.EncodeToString(sum[:6]))
}

// NewShipment builds a freshly created shipment. Empty carrier falls back to DefaultCarrier.
func NewShipment(orderID, carrier string) *Shipment {
	if carrier == "" {
		carrier = DefaultCarrier
	}
	id := NewShipmentID()
	return &Shipment{
		ShipmentID:     id,
		OrderID:        orderID,
		Carrier:        carrier,
		TrackingNumber: TrackingNumberFor(id),
		Status:         ShipmentStatusCreated,
	}
}
