package shipments_api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/BearBump/ShipBridge/internal/services/shipments"
)

type Service interface {
	Create(ctx context.Context, in shipments.CreateInput) (models.Shipment, error)
	Get(ctx context.Context, id string) models.Shipment
	List(ctx context.Context, orderID string) []models.Shipment
	Cancel(ctx context.Context, id string) models.Shipment
}

type ShipmentsAPI struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *ShipmentsAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentsAPI{svc: svc, logger: logger}
}

type createShipmentRequest struct {
	OrderID               string `json:"orderId"`
	DestinationPostalCode string `json:"destinationPostalCode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *ShipmentsAPI) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	sh, err := a.svc.Create(r.Context(), shipments.CreateInput{
		OrderID:               req.OrderID,
		DestinationPostalCode: req.DestinationPostalCode,
	})
	if err != nil {
		if errors.Is(err, shipments.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error("create shipment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusCreated, sh.View())
}

func (a *ShipmentsAPI) GetShipment(w http.ResponseWriter, r *http.Request) {
	sh := a.svc.Get(r.Context(), chi.URLParam(r, "shipmentId"))
	writeJSON(w, http.StatusOK, sh.View())
}

func (a *ShipmentsAPI) ListShipments(w http.ResponseWriter, r *http.Request) {
	list := a.svc.List(r.Context(), r.URL.Query().Get("orderId"))
	out := make([]models.ShipmentView, 0, len(list))
	for i := range list {
		out = append(out, list[i].View())
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *ShipmentsAPI) CancelShipment(w http.ResponseWriter, r *http.Request) {
	sh := a.svc.Cancel(r.Context(), chi.URLParam(r, "shipmentId"))
	writeJSON(w, http.StatusOK, sh.View())
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
