package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/walletpool/internal/eventstore"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

// TimelineSource answers address history queries.
type TimelineSource interface {
	Timeline(ctx context.Context, addr string) (*eventstore.Timeline, error)
}

var _ TimelineSource = (*eventstore.TimelineProjection)(nil)

// HistoryHandlers serves the journaled lifecycle of addresses.
type HistoryHandlers struct {
	source       TimelineSource
	errorAdapter *errors.HTTPErrorAdapter
}

// NewHistoryHandlers creates the history handlers.
func NewHistoryHandlers(source TimelineSource, adapter *errors.HTTPErrorAdapter) *HistoryHandlers {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &HistoryHandlers{source: source, errorAdapter: adapter}
}

// Register mounts the routes on mux.
func (h *HistoryHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/addresses/{address}/history", h.HandleHistory)
}

// HandleHistory returns the address timeline.
func (h *HistoryHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	tl, err := h.source.Timeline(r.Context(), r.PathValue("address"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, tl); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write response").Build())
	}
}
