package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/keepsake/internal/auth"
	"github.com/hyperengineering/keepsake/internal/collection"
	"github.com/hyperengineering/keepsake/internal/uploads"
	"github.com/hyperengineering/keepsake/internal/validation"
)

// LoginPath is where unauthenticated clients are sent.
const LoginPath = "/login"

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusUnauthorized: {
		typeURI: "https://keepsake.dev/errors/unauthorized",
		title:   "Unauthorized",
	},
	http.StatusBadRequest: {
		typeURI: "https://keepsake.dev/errors/bad-request",
		title:   "Bad Request",
	},
	http.StatusNotFound: {
		typeURI: "https://keepsake.dev/errors/not-found",
		title:   "Not Found",
	},
	http.StatusInternalServerError: {
		typeURI: "https://keepsake.dev/errors/internal-error",
		title:   "Internal Server Error",
	},
	http.StatusUnprocessableEntity: {
		typeURI: "https://keepsake.dev/errors/validation-error",
		title:   "Validation Error",
	},
	http.StatusConflict: {
		typeURI: "https://keepsake.dev/errors/conflict",
		title:   "Conflict",
	},
	http.StatusForbidden: {
		typeURI: "https://keepsake.dev/errors/forbidden",
		title:   "Forbidden",
	},
	http.StatusRequestEntityTooLarge: {
		typeURI: "https://keepsake.dev/errors/too-large",
		title:   "Payload Too Large",
	},
	http.StatusTooManyRequests: {
		typeURI: "https://keepsake.dev/errors/rate-limit",
		title:   "Too Many Requests",
	},
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt, ok := problemTypes[status]
	if !ok {
		pt = struct {
			typeURI string
			title   string
		}{
			typeURI: "https://keepsake.dev/errors/unknown",
			title:   http.StatusText(status),
		}
	}

	p := Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := problemTypes[http.StatusUnprocessableEntity]

	p := ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// WriteUnauthenticated writes a 401 that points the client at the login page.
func WriteUnauthenticated(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Location", LoginPath)
	WriteProblem(w, r, http.StatusUnauthorized, "Sign in to continue")
}

// MapError converts domain errors to Problem Details responses.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs    validation.Errors
		fileErr  *collection.FileError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verrs):
		WriteProblemWithErrors(w, r, "Request contains invalid fields", verrs)
	case errors.Is(err, auth.ErrUnauthenticated):
		WriteUnauthenticated(w, r)
	case errors.Is(err, auth.ErrInvalidCredentials):
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrForbidden):
		WriteProblem(w, r, http.StatusForbidden, "Your role may not perform this operation")
	case errors.Is(err, collection.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Entry not found")
	case errors.Is(err, collection.ErrConflict):
		WriteProblem(w, r, http.StatusConflict, "Entry changed; reload and try again")
	case errors.Is(err, uploads.ErrTooLarge), errors.As(err, &tooLarge):
		WriteProblem(w, r, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, uploads.ErrNoFile):
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{
			{Field: "file", Message: "is required"},
		})
	case errors.As(err, &fileErr):
		slog.Error("file operation failed",
			"component", "api",
			"action", fileErr.Op,
			"path", r.URL.Path,
			"error", err,
		)
		WriteProblem(w, r, http.StatusInternalServerError, "Could not store file")
	default:
		// Never expose internal error details to client
		slog.Error("request failed",
			"component", "api",
			"path", r.URL.Path,
			"error", err,
		)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
