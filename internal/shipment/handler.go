package shipment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateShipmentDTO) (*Shipment, error)
	Get(ctx context.Context, id string) (*Shipment, error)
	List(ctx context.Context, filter Filter) ([]*Shipment, int64, error)
	PublicView(ctx context.Context, id string) (*PublicView, error)
	Delete(ctx context.Context, id string) error
	AppendStatus(ctx context.Context, shipmentID string, dto AppendStatusDTO) (*StatusEvent, error)
	History(ctx context.Context, shipmentID string) ([]*StatusEvent, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateShipmentDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	s, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r)
	filter := Filter{
		ClientID: r.URL.Query().Get("client_id"),
		Status:   Status(r.URL.Query().Get("status")),
		Limit:    limit,
		Offset:   offset,
	}

	shipments, total, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ShipmentsResponse{Shipments: shipments, Total: total, Limit: limit, Offset: offset})
}

// Track is the unauthenticated tracking endpoint: GET /shipments/track?id=.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("id", "id is required", internal.ErrCodeValidationFailed))
		return
	}

	view, err := h.Service.PublicView(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AppendStatus(w http.ResponseWriter, r *http.Request) {
	var dto AppendStatusDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	event, err := h.Service.AppendStatus(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := h.Service.History(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, HistoryResponse{ShipmentID: id, History: history})
}
