package memshipments

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ShipBridge/internal/models"
)

func TestStore_PutGet(t *testing.T) {
	s := New()
	sh := *models.NewShipment("o-1", "DHL")
	s.Put(sh)

	got := s.Get(sh.ShipmentID)
	require.Equal(t, sh, got)
	require.Equal(t, 1, s.Len())
}

func TestStore_PutOverwriteKeepsOrder(t *testing.T) {
	s := New()
	a := *models.NewShipment("o-1", "")
	b := *models.NewShipment("o-2", "")
	s.Put(a)
	s.Put(b)

	a.Status = models.ShipmentStatusDelivered
	s.Put(a)

	list := s.List("")
	require.Len(t, list, 2)
	require.Equal(t, a.ShipmentID, list[0].ShipmentID)
	require.Equal(t, models.ShipmentStatusDelivered, list[0].Status)
	require.Equal(t, b.ShipmentID, list[1].ShipmentID)
}

func TestStore_GetUnknownSynthesizes(t *testing.T) {
	s := New()
	got := s.Get("abc")
	require.Equal(t, "abc", got.ShipmentID)
	require.Equal(t, "ORD-abc", got.OrderID)
	require.Equal(t, models.DefaultCarrier, got.Carrier)
	require.Equal(t, models.ShipmentStatusInTransit, got.Status)
	require.Equal(t, models.TrackingNumberFor("abc"), got.TrackingNumber)
	// синтетика не сохраняется
	require.Equal(t, 0, s.Len())
}

func TestStore_ListFilter(t *testing.T) {
	s := New()
	s.Put(*models.NewShipment("o-1", ""))
	s.Put(*models.NewShipment("o-2", ""))
	s.Put(*models.NewShipment("o-1", ""))

	require.Len(t, s.List(""), 3)
	require.Len(t, s.List("o-1"), 2)
	require.Empty(t, s.List("o-unknown"))
}

func TestStore_ListEmptyWithFilterReturnsPlaceholder(t *testing.T) {
	s := New()
	list := s.List("o-7")
	require.Len(t, list, 1)
	require.Equal(t, "o-7", list[0].OrderID)
	require.Equal(t, models.ShipmentStatusInTransit, list[0].Status)
	require.Equal(t, models.TrackingNumberFor(list[0].ShipmentID), list[0].TrackingNumber)

	again := s.List("o-7")
	require.Equal(t, list[0].ShipmentID, again[0].ShipmentID)

	require.Empty(t, s.List(""))
}

func TestStore_UpdateUnknownStoresResult(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	got := s.Update("x-1", func(sh *models.Shipment) {
		sh.Status = models.ShipmentStatusCancelled
		sh.CancelledAt = &now
	})
	require.Equal(t, models.ShipmentStatusCancelled, got.Status)
	require.Equal(t, "ORD-x-1", got.OrderID)
	require.Equal(t, got, s.Get("x-1"))
}

func TestStore_UpdateConcurrent(t *testing.T) {
	s := New()
	sh := *models.NewShipment("o-1", "")
	s.Put(sh)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(sh.ShipmentID, func(cur *models.Shipment) {
				cur.Carrier += "x"
			})
		}()
	}
	wg.Wait()
	require.Len(t, s.Get(sh.ShipmentID).Carrier, len(models.DefaultCarrier)+50)
	require.Equal(t, 1, s.Len())
}
