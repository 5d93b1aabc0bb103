package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeline/internal/asynctask"
	"lifeline/internal/match"
	"lifeline/internal/matcher"
	"lifeline/internal/offer"
	"lifeline/internal/platform/middleware"
	dErrors "lifeline/pkg/domain-errors"
	"lifeline/pkg/httputil"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Matcher triggers one allocation pass.
type Matcher interface {
	MatchAndConsume(ctx context.Context) ([]matcher.Result, error)
}

// TaskService tracks async match reprocessing.
type TaskService interface {
	StartReprocess(ctx context.Context, matchID int64) (*asynctask.Task, error)
	Get(ctx context.Context, taskID string) (*asynctask.Task, error)
	Delay() time.Duration
}

// Handler exposes the match read/write surface and the matching trigger.
type Handler struct {
	logger     *slog.Logger
	matches    match.Store
	offers     offer.Store
	matcher    Matcher
	tasks      TaskService
	adminToken string
}

func New(
	matches match.Store,
	offers offer.Store,
	m Matcher,
	tasks TaskService,
	logger *slog.Logger,
	adminToken string,
) *Handler {
	return &Handler{
		logger:     logger,
		matches:    matches,
		offers:     offers,
		matcher:    m,
		tasks:      tasks,
		adminToken: adminToken,
	}
}

// Register mounts the match routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/match/do-match", h.handleDoMatch)

	r.Route("/matches", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/async/tasks/{taskID}", h.handleGetTask)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/full", h.handleGetFull)
		r.Post("/{id}/async", h.handleStartAsync)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(h.adminToken))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

// handleDoMatch runs one matching pass against the current registry
// snapshots.
func (h *Handler) handleDoMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results, err := h.matcher.MatchAndConsume(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "matching pass failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"match_count": len(results),
		"matches":     results,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := pageParams(r)
	f := match.Filter{
		DonorID:     r.URL.Query().Get("donor_id"),
		RecipientID: r.URL.Query().Get("recipient_id"),
		Limit:       limit,
		Offset:      offset,
	}

	matches, err := h.matches.List(ctx, f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	total, err := h.matches.Count(ctx, f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if offset+len(matches) < total {
		query := url.Values{}
		if f.DonorID != "" {
			query.Set("donor_id", f.DonorID)
		}
		if f.RecipientID != "" {
			query.Set("recipient_id", f.RecipientID)
		}
		w.Header().Set("Link", httputil.NextPageLink("/matches", query.Encode(), limit, offset))
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.matches.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Weak validator: id plus status captures everything a client can act on.
	w.Header().Set("ETag", fmt.Sprintf(`W/"match-%d-%s"`, m.ID, m.Status))
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleGetFull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.matches.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offers, err := h.offers.ListByMatch(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"match":  m,
		"offers": offers,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var m match.Match
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if m.Status == "" {
		m.Status = match.StatusPending
	}
	if err := h.matches.Create(r.Context(), &m); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/matches/%d", m.ID))
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var p match.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	m, err := h.matches.Update(r.Context(), id, p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.matches.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartAsync accepts a reprocessing request for an existing match and
// returns a pollable task handle.
func (h *Handler) handleStartAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.matches.Get(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	task, err := h.tasks.StartReprocess(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "start async task failed",
			"request_id", middleware.GetRequestID(ctx),
			"match_id", id,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Location", "/matches/async/tasks/"+task.ID)
	retryAfter := int(h.tasks.Delay().Round(time.Second) / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusAccepted, task)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, task)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid match id")
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
