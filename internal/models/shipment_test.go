package models

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var trackingRe = regexp.MustCompile(`^TRK-[0-9A-F]{12}$`)

func TestTrackingNumberFor_Deterministic(t *testing.T) {
	a := TrackingNumberFor("shp-1")
	b := TrackingNumberFor("shp-1")
	require.Equal(t, a, b)
	require.Regexp(t, trackingRe, a)
	require.NotEqual(t, a, TrackingNumberFor("shp-2"))
}

func TestNewShipment(t *testing.T) {
	s := NewShipment("o-1", "")
	require.NotEmpty(t, s.ShipmentID)
	require.Equal(t, "o-1", s.OrderID)
	require.Equal(t, DefaultCarrier, s.Carrier)
	require.Equal(t, ShipmentStatusCreated, s.Status)
	require.Equal(t, TrackingNumberFor(s.ShipmentID), s.TrackingNumber)
	require.Nil(t, s.CancelledAt)

	s2 := NewShipment("o-1", "DHL")
	require.Equal(t, "DHL", s2.Carrier)
	require.NotEqual(t, s.ShipmentID, s2.ShipmentID)
}

func TestShipment_View(t *testing.T) {
	s := NewShipment("o-9", "FEDEX")
	v := s.View()
	require.Equal(t, s.ShipmentID, v.ShipmentID)
	require.Equal(t, "o-9", v.OrderID)
	require.Equal(t, "FEDEX", v.Carrier)
	require.Equal(t, s.TrackingNumber, v.TrackingNumber)
	require.Equal(t, ShipmentStatusCreated, v.Status)
}
