package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"stagehand/internal/api"
	"stagehand/internal/logging"
	"stagehand/internal/services"
)

const (
	headerUserID    = "X-User-ID"
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type validatable interface {
	Validate() error
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log(r).Error("failed to encode response", logging.Error(err))
	}
}

// writeError maps err to a status code by kind and writes an
// api.ErrorResponse.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := api.FromError(err)
	status := statusForKind(resp.Kind)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(s.log(r), "request failed", "request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
		)
		resp.Error = "internal error"
	}
	s.writeJSON(w, r, status, resp)
}

func statusForKind(kind string) int {
	switch kind {
	case services.KindOverlap, services.KindConflict:
		return http.StatusConflict
	case services.KindLockConflict:
		return http.StatusLocked
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func notFound(format string, args ...any) error {
	return services.Wrap(services.ErrNotFound, "api", "", fmt.Sprintf(format, args...), nil)
}

func badRequest(format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "api", "", fmt.Sprintf(format, args...), nil)
}

// decodeBody reads a JSON body into dst and runs its validation.
func decodeBody(r *http.Request, dst validatable) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid request body: %v", err)
	}
	return dst.Validate()
}

// requireUser returns the acting user from X-User-ID.
func requireUser(r *http.Request) (string, error) {
	user := strings.TrimSpace(r.Header.Get(headerUserID))
	if user == "" {
		return "", badRequest("%s header is required", headerUserID)
	}
	return user, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid frame id %q", raw)
	}
	return id, nil
}

func (s *Server) log(r *http.Request) *slog.Logger {
	if r == nil {
		return s.logger
	}
	return logging.WithContext(r.Context(), s.logger)
}
