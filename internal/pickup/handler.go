package pickup

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/transport"
)

const uploadField = "file"

type ServiceAPI interface {
	Create(ctx context.Context, dto CreatePickupDTO) (*Pickup, error)
	Get(ctx context.Context, id int64) (*Pickup, error)
	GetByShipment(ctx context.Context, shipmentID string) (*Pickup, error)
	UploadIdentityProof(ctx context.Context, filename string, r io.Reader) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	MaxUploadBytes int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		BaseHandler:    baseHandler,
		Service:        service,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreatePickupDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	p, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid pickup id")
		return
	}

	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// GetByShipment serves GET /pickups?shipment_id=.
func (h *Handler) GetByShipment(w http.ResponseWriter, r *http.Request) {
	shipmentID := r.URL.Query().Get("shipment_id")
	if shipmentID == "" {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("shipment_id", "shipment_id is required", internal.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.GetByShipment(r.Context(), shipmentID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// UploadIdentityProof takes a multipart form with the document in "file".
func (h *Handler) UploadIdentityProof(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.HandleServiceError(w, r, internal.NewValidationFieldError(uploadField, "file is required", internal.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	url, err := h.Service.UploadIdentityProof(r.Context(), header.Filename, file)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
