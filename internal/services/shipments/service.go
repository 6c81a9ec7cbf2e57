package shipments

import (
	"context"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/ShipBridge/internal/broker/messages"
	"github.com/BearBump/ShipBridge/internal/models"
)

// ErrValidation маппится HTTP-слоем в 400.
var ErrValidation = errors.New("validation error")

// ValidationError несёт текст для клиента и матчится на ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type Store interface {
	Put(sh models.Shipment)
	Get(id string) models.Shipment
	List(orderID string) []models.Shipment
	Update(id string, fn func(sh *models.Shipment)) models.Shipment
}

// Notifier шлёт аналитические уведомления. Publish не блокирует и не возвращает ошибку.
type Notifier interface {
	Publish(ev messages.AnalyticsNotification)
}

type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func New(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}

type CreateInput struct {
	OrderID               string
	DestinationPostalCode string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (models.Shipment, error) {
	if strings.TrimSpace(in.OrderID) == "" {
		return models.Shipment{}, &ValidationError{Message: "orderId is required"}
	}
	if strings.TrimSpace(in.DestinationPostalCode) == "" {
		return models.Shipment{}, &ValidationError{Message: "destinationPostalCode is required"}
	}

	sh := models.NewShipment(in.OrderID, "")
	s.store.Put(*sh)

	s.notify(ctx, sh.ShipmentID, "Shipment created",
		"Shipment "+sh.ShipmentID+" created for order "+sh.OrderID,
		messages.PriorityNormal)
	return *sh, nil
}

func (s *Service) Get(ctx context.Context, id string) models.Shipment {
	return s.store.Get(id)
}

func (s *Service) List(ctx context.Context, orderID string) []models.Shipment {
	return s.store.List(orderID)
}

// Cancel терминален и идемпотентен: повторная отмена только обновляет cancelledAt.
func (s *Service) Cancel(ctx context.Context, id string) models.Shipment {
	at := s.now().UTC()
	sh := s.store.Update(id, func(sh *models.Shipment) {
		sh.Status = models.ShipmentStatusCancelled
		sh.CancelledAt = &at
	})

	s.notify(ctx, sh.ShipmentID, "Shipment cancelled",
		"Shipment "+sh.ShipmentID+" for order "+sh.OrderID+" was cancelled",
		messages.PriorityHigh)
	return sh
}

func (s *Service) notify(ctx context.Context, shipmentID, title, body string, prio messages.Priority) {
	if s.notifier == nil {
		return
	}
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = shipmentID
	}
	s.notifier.Publish(messages.AnalyticsNotification{
		NotificationID: uuid.NewString(),
		RequestID:      requestID,
		Title:          title,
		Body:           body,
		Priority:       prio,
	})
}
