package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/thesavant42/scorekeeper/internal/batch"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
	"github.com/thesavant42/scorekeeper/internal/pool"
)

// errBadRequest marks validation failures raised by the handlers themselves
var errBadRequest = errors.New("bad request")

type badRequest string

func (e badRequest) Error() string { return string(e) }
func (e badRequest) Is(target error) bool {
	return target == errBadRequest
}

// writeJSON writes fields as a JSON object with "success": true added
func writeJSON(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps err to a status code and writes {"success": false, "error": ...}
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, pool.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, batch.ErrNoBatch):
		return http.StatusNotFound
	case errors.Is(err, pool.ErrPoolEmpty), errors.Is(err, errScrapeRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	// An empty body leaves v at its zero value
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// pathCode returns the {code} URL parameter if it is a valid score code
func pathCode(r *http.Request) (string, error) {
	code := chi.URLParam(r, "code")
	if !codes.IsScoreCode(code) {
		return "", badRequest("invalid score code: " + code)
	}
	return code, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("invalid pool id")
	}
	return id, nil
}

// parseCompletion accepts a JSON number or numeric string in [0, 100]
func parseCompletion(raw json.RawMessage) (int, error) {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	if !codes.IsCompletion(text) {
		return 0, badRequest("completion must be an integer between 0 and 100")
	}
	n, _ := strconv.Atoi(text)
	return n, nil
}

// filterFromQuery reads min_completion, max_completion and favorite
// (1 = favorites only, 2 = non-favorites only, 0 or absent = either)
func filterFromQuery(r *http.Request) (models.PoolFilter, error) {
	var f models.PoolFilter
	q := r.URL.Query()

	for _, bound := range []struct {
		key string
		dst **int
	}{
		{"min_completion", &f.MinCompletion},
		{"max_completion", &f.MaxCompletion},
	} {
		v := q.Get(bound.key)
		if v == "" {
			continue
		}
		if !codes.IsCompletion(v) {
			return f, badRequest(bound.key + " must be an integer between 0 and 100")
		}
		n, _ := strconv.Atoi(v)
		*bound.dst = &n
	}

	switch q.Get("favorite") {
	case "", "0":
	case "1":
		fav := true
		f.Favorite = &fav
	case "2":
		fav := false
		f.Favorite = &fav
	default:
		return f, badRequest("favorite must be 0, 1 or 2")
	}
	return f, nil
}

func validateFilter(f models.PoolFilter) error {
	if f.MinCompletion != nil && !codes.ValidCompletion(*f.MinCompletion) {
		return badRequest("min_completion must be between 0 and 100")
	}
	if f.MaxCompletion != nil && !codes.ValidCompletion(*f.MaxCompletion) {
		return badRequest("max_completion must be between 0 and 100")
	}
	return nil
}
