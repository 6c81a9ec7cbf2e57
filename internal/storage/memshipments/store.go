package memshipments

import (
	"sync"

	"github.com/google/uuid"

	"github.com/BearBump/ShipBridge/internal/models"
)

// placeholderNamespace is the uuid v5 namespace for placeholder shipments synthesized by List.
var placeholderNamespace = uuid.MustParse("6f1c2a4e-8b0d-4c55-9a3e-3d4b7c9e2f10")

// Store is the volatile registry of shipments, one per process. Nothing is persisted.
// A single RWMutex serializes read-modify-write per shipment id (see Update).
type Store struct {
	mu    sync.RWMutex
	items map[string]models.Shipment
	order []string
}

func New() *Store {
	return &Store{items: make(map[string]models.Shipment)}
}

// Put inserts or overwrites by ShipmentID. Overwrite keeps the original position in List.
func (s *Store) Put(sh models.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(sh)
}

func (s *Store) putLocked(sh models.Shipment) {
	if _, ok := s.items[sh.ShipmentID]; !ok {
		s.order = append(s.order, sh.ShipmentID)
	}
	s.items[sh.ShipmentID] = sh
}

// Get never reports "not found": an unknown id yields a synthesized in-transit shipment.
func (s *Store) Get(id string) models.Shipment {
	s.mu.RLock()
	sh, ok := s.items[id]
	s.mu.RUnlock()
	if ok {
		return sh
	}
	return Synthesize(id)
}

// Update applies fn to the current record (or the synthesized default) and stores the result
// atomically with respect to other writers.
func (s *Store) Update(id string, fn func(sh *models.Shipment)) models.Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.items[id]
	if !ok {
		sh = Synthesize(id)
	}
	fn(&sh)
	sh.ShipmentID = id
	s.putLocked(sh)
	return sh
}

// List returns shipments in insertion order, filtered by orderID when it is not empty.
// An empty store with a filter yields a single placeholder for that order.
func (s *Store) List(orderID string) []models.Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 && orderID != "" {
		return []models.Shipment{placeholderFor(orderID)}
	}

	out := make([]models.Shipment, 0, len(s.order))
	for _, id := range s.order {
		sh := s.items[id]
		if orderID != "" && sh.OrderID != orderID {
			continue
		}
		out = append(out, sh)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Synthesize builds the default view returned for unknown shipment ids.
func Synthesize(id string) models.Shipment {
	return models.Shipment{
		ShipmentID:     id,
		OrderID:        "ORD-" + id,
		Carrier:        models.DefaultCarrier,
		TrackingNumber: models.TrackingNumberFor(id),
		Status:         models.ShipmentStatusInTransit,
	}
}

func placeholderFor(orderID string) models.Shipment {
	id := uuid.NewSHA1(placeholderNamespace, []byte(orderID)).String()
	return models.Shipment{
		ShipmentID:     id,
		OrderID:        orderID,
		Carrier:        models.DefaultCarrier,
		TrackingNumber: models.TrackingNumberFor(id),
		Status:         models.ShipmentStatusInTransit,
	}
}
