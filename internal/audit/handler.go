package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/transit241/port-logistics/internal/transport"
)

type ServiceAPI interface {
	Get(ctx context.Context, id int64) (*Entry, error)
	Query(ctx context.Context, filter Filter) ([]*Entry, int64, error)
}

// Handler is read-only; the ledger is written by the Subscriber.
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	filter := Filter{
		ActionType:   q.Get("action_type"),
		ResourceName: q.Get("resource_name"),
		ActorID:      q.Get("actor_id"),
		Search:       q.Get("search"),
		Limit:        limit,
		Offset:       offset,
	}

	entries, total, err := h.Service.Query(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.Page{Items: entries, Limit: limit, Offset: offset, Total: total})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid audit entry id")
		return
	}

	entry, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}
