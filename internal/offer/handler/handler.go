package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/match"
	"lifeline/internal/offer"
	"lifeline/internal/platform/middleware"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/httputil"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler exposes the offer CRUD surface.
type Handler struct {
	logger     *slog.Logger
	offers     offer.Store
	matches    match.Store
	adminToken string
}

func New(offers offer.Store, matches match.Store, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{
		logger:     logger,
		offers:     offers,
		matches:    matches,
		adminToken: adminToken,
	}
}

// Register mounts the offer routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/offers", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(h.adminToken))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := pageParams(r)

	offers, err := h.offers.List(ctx, offer.Page{Limit: limit, Offset: offset})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	total, err := h.offers.Count(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Content hash over the serialized page so clients can cache listings.
	w.Header().Set("ETag", `"`+offer.Fingerprint(offers)+`"`)
	if offset+len(offers) < total {
		w.Header().Set("Link", httputil.NextPageLink("/offers", "", limit, offset))
	}
	httputil.WriteJSON(w, http.StatusOK, offers)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.offers.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var o offer.Offer
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if o.Status == "" {
		o.Status = offer.StatusPending
	}
	if err := o.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	// An offer without an existing match is a client error, not a 404: the
	// offer is the resource being created here.
	if _, err := h.matches.Get(ctx, o.MatchID); err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			err = dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("match %d does not exist", o.MatchID))
		}
		httputil.WriteError(w, err)
		return
	}
	if err := h.offers.Create(ctx, &o); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/offers/%d", o.ID))
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var p offer.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	o, err := h.offers.Update(r.Context(), id, p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.offers.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid offer id")
	}
	return id, nil
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
