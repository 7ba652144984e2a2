package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/collection"
	"github.com/hyperengineering/keepsake/internal/config"
	"github.com/hyperengineering/keepsake/internal/metrics"
	"github.com/hyperengineering/keepsake/internal/types"
	"github.com/hyperengineering/keepsake/internal/validation"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

// Handler implements the API handlers
type Handler struct {
	svc     *collection.Service
	gate    *auth.Gate
	metrics *metrics.Metrics
	limiter *ClientRateLimiter

	cookie     config.SessionConfig
	bio        string
	start      time.Time
	galleryDir string
	photosDir  string
	maxUpload  int64
	version    string
	now        func() time.Time
}

// NewHandler creates a Handler serving svc, with sessions issued by gate.
func NewHandler(svc *collection.Service, gate *auth.Gate, m *metrics.Metrics, cfg *config.Config, version string) (*Handler, error) {
	start, err := cfg.Relationship.StartDate()
	if err != nil {
		return nil, fmt.Errorf("relationship start: %w", err)
	}
	return &Handler{
		svc:        svc,
		gate:       gate,
		metrics:    m,
		limiter:    NewClientRateLimiter(cfg.Auth.LoginsPerMinute, cfg.Auth.LoginBurst),
		cookie:     cfg.Session,
		bio:        cfg.Relationship.Bio,
		start:      start,
		galleryDir: cfg.Uploads.GalleryDir,
		photosDir:  cfg.Uploads.PhotosDir,
		maxUpload:  cfg.Uploads.MaxBytes,
		version:    version,
		now:        time.Now,
	}, nil
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Counts:  h.svc.Counts(),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/login. Any session the client already holds is
// discarded first, so a failed attempt leaves the client signed out.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid form body")
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if !decodeJSON(w, r, &req) {
		return
	}

	prior := SessionTokenFromContext(r.Context())
	token, p, err := h.gate.Login(r.Context(), prior, req.Username, req.Password)
	if err != nil {
		h.clearCookie(w)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.metrics.Login(false)
		}
		MapError(w, r, err)
		return
	}
	h.metrics.Login(true)

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(time.Duration(h.cookie.TTL).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, p)
}

// Logout handles POST /api/v1/logout. It always succeeds from the client's
// point of view.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := SessionTokenFromContext(r.Context()); token != "" {
		if err := h.gate.Logout(r.Context(), token); err != nil {
			slog.Error("logout failed",
				"component", "api",
				"action", "logout",
				"error", err,
			)
		}
	}
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	auth.Principal
	Permissions map[auth.Resource][]auth.Op `json:"permissions"`
}

// Me handles GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := MustPrincipal(r.Context())
	writeJSON(w, http.StatusOK, meResponse{Principal: p, Permissions: h.svc.Permissions(p)})
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p := MustPrincipal(r.Context())
	writeJSON(w, http.StatusOK, BuildDashboard(
		p.Username,
		h.bio,
		h.start,
		h.now(),
		h.svc.Gallery.Preview(collection.PreviewSize),
	))
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			WriteProblem(w, r, http.StatusBadRequest, "Request body is empty")
			return false
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

func isForm(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// refFromRequest reads the {index} URL parameter and the optional id query
// parameter that guards against acting on a shifted list.
func refFromRequest(r *http.Request) (collection.Ref, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return collection.Ref{}, fmt.Errorf("index %q: %w", chi.URLParam(r, "index"), collection.ErrNotFound)
	}
	id := r.URL.Query().Get("id")
	if id != "" {
		if verr := validation.ValidateULID("id", id); verr != nil {
			return collection.Ref{}, validation.Errors{*verr}
		}
	}
	return collection.Ref{Index: i, ID: id}, nil
}

// writeMutation writes the outcome of a successful mutation, logging any
// non-fatal failures it carried.
func writeMutation[T any](w http.ResponseWriter, r *http.Request, res collection.Result[T], id string) {
	warnings := res.Warnings()
	for _, msg := range warnings {
		slog.Warn("mutation warning",
			"component", "api",
			"path", r.URL.Path,
			"warning", msg,
		)
	}
	writeJSON(w, http.StatusOK, types.MutationResponse{
		Index:    res.Index,
		ID:       id,
		Entry:    res.Entry,
		Warnings: warnings,
	})
}
