package billing

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/transit241/port-logistics/internal/transport"
)

type ServiceAPI interface {
	CreateInvoice(ctx context.Context, dto CreateInvoiceDTO) (*Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	MarkPaid(ctx context.Context, id int64) (*Invoice, error)
	CancelInvoice(ctx context.Context, id int64) (*Invoice, error)
	RecordTransaction(ctx context.Context, dto RecordTransactionDTO) (*Transaction, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, shipmentID string) ([]*Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, dto UpdateTransactionStatusDTO) (*Transaction, error)
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

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var dto CreateInvoiceDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	inv, err := h.Service.CreateInvoice(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.Service.GetInvoice)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.Service.MarkPaid)
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.Service.CancelInvoice)
}

func (h *Handler) invoiceAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*Invoice, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	inv, err := fn(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var dto RecordTransactionDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	t, err := h.Service.RecordTransaction(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// ListTransactions serves GET /transactions?shipment_id=.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.ListTransactions(r.Context(), r.URL.Query().Get("shipment_id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TransactionsResponse{Transactions: txs})
}

func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var dto UpdateTransactionStatusDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	t, err := h.Service.UpdateTransactionStatus(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}
