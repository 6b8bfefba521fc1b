package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/pool"
	"git.home.luguber.info/inful/walletpool/internal/server/responses"
)

// AddressService is the part of pool.Service the API exposes.
type AddressService interface {
	Allocate(ctx context.Context, ownerID string) (*address.Address, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*address.Address, error)
	Release(ctx context.Context, ownerID, addr string) error
	GetAll(ctx context.Context) ([]*address.Address, error)
	GetFreeAddresses(ctx context.Context) ([]*address.Address, error)
	UpdateWalletBalance(ctx context.Context) (*pool.ReconcileResult, error)
	Audit(ctx context.Context) (*pool.AuditReport, error)
}

var _ AddressService = (*pool.Service)(nil)

// AddressHandlers serves the /v1 address routes.
type AddressHandlers struct {
	svc          AddressService
	errorAdapter *errors.HTTPErrorAdapter
}

// NewAddressHandlers creates the address handlers.
func NewAddressHandlers(svc AddressService, adapter *errors.HTTPErrorAdapter) *AddressHandlers {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &AddressHandlers{svc: svc, errorAdapter: adapter}
}

// Register mounts the routes on mux.
func (h *AddressHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/{ownerId}/addresses", h.HandleAllocate)
	mux.HandleFunc("GET /v1/{ownerId}/addresses", h.HandleListOwner)
	mux.HandleFunc("DELETE /v1/{ownerId}/addresses/{address}", h.HandleRelease)
	mux.HandleFunc("GET /v1/addresses", h.HandleListAll)
	mux.HandleFunc("GET /v1/addresses/free", h.HandleListFree)
	mux.HandleFunc("DELETE /v1/addresses/{address}", h.HandleRelease)
	mux.HandleFunc("POST /v1/balances/sync", h.HandleSync)
	mux.HandleFunc("GET /v1/audit", h.HandleAudit)
}

// HandleAllocate hands the owner an address.
func (h *AddressHandlers) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Allocate(r.Context(), r.PathValue("ownerId"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusCreated, responses.AddressResponse{Address: a.Public()})
}

// HandleListOwner lists the owner's enabled addresses.
func (h *AddressHandlers) HandleListOwner(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetByOwner(r.Context(), r.PathValue("ownerId"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.NewAddressList(list))
}

// HandleRelease releases an address. Without an ownerId path segment the
// lookup is not scoped to an owner.
func (h *AddressHandlers) HandleRelease(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Release(r.Context(), r.PathValue("ownerId"), r.PathValue("address")); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAll lists every enabled address.
func (h *AddressHandlers) HandleListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetAll(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.NewAddressList(list))
}

// HandleListFree lists the free pool.
func (h *AddressHandlers) HandleListFree(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetFreeAddresses(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.NewAddressList(list))
}

// HandleSync runs a balance reconciliation.
func (h *AddressHandlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UpdateWalletBalance(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	resp := responses.NewReconcileResponse(res, time.Now().UTC())
	h.write(w, r, http.StatusOK, resp)
}

// HandleAudit reports daemon/store drift.
func (h *AddressHandlers) HandleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Audit(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, responses.NewAuditResponse(report, time.Now().UTC()))
}

func (h *AddressHandlers) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSONPretty(w, r, status, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write response").Build())
	}
}
