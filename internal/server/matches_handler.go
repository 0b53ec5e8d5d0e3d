package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/grovehq/grove/internal/errors"
	"github.com/grovehq/grove/internal/httpx"
	"github.com/grovehq/grove/internal/service/matches"
)

// MatchesHandler owns the match endpoints.
type MatchesHandler struct {
	Svc *matches.Service
	Log *slog.Logger
}

func NewMatchesHandler(svc *matches.Service, log *slog.Logger) *MatchesHandler {
	return &MatchesHandler{Svc: svc, Log: log}
}

// Routes mounts the match endpoints. All of them require an authenticated
// user.
func (h *MatchesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequireUser)
	r.Get("/", h.List)
	r.Post("/{matchID}/accept", h.Accept)
	r.Post("/{matchID}/pass", h.Pass)
	return r
}

type matchListResponse struct {
	Matches      []matches.MatchDTO `json:"matches"`
	PendingCount int64              `json:"pendingCount"`
}

// List serves GET /matches. Query: limit, min_similarity.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	opts := matches.MatchOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("min_similarity"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			opts.MinSimilarityScore = f
		}
	}

	dtos, err := h.Svc.GetMatchesForUser(r.Context(), userID, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pending, err := h.Svc.PendingMatchCount(r.Context(), userID)
	if err != nil {
		// badge counter is cosmetic, don't fail the listing over it
		h.Log.Warn("pending count lookup failed", "user", userID, "err", err)
		pending = int64(len(dtos))
	}

	httpx.JSON(w, http.StatusOK, matchListResponse{Matches: dtos, PendingCount: pending})
}

// Accept serves POST /matches/{matchID}/accept.
func (h *MatchesHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Svc.AcceptMatch)
}

// Pass serves POST /matches/{matchID}/pass.
func (h *MatchesHandler) Pass(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Svc.PassMatch)
}

type decisionFunc func(ctx context.Context, matchID, userID uint64, ipAddress, userAgent string) (*matches.DecisionResponse, error)

func (h *MatchesHandler) decide(w http.ResponseWriter, r *http.Request, fn decisionFunc) {
	userID, _ := UserID(r.Context())

	matchID, err := strconv.ParseUint(chi.URLParam(r, "matchID"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "matchID must be a valid id", nil)
		return
	}

	resp, err := fn(r.Context(), matchID, userID, clientIP(r), r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *MatchesHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := svcErr.Status(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	httpx.JSONError(w, status, svcErr.Message(err), nil)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.Split(fwd, ",")[0]
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
