package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"depotflow/workflow"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeWorkflowError maps workflow error kinds to HTTP statuses and keeps the
// reason code in the body so clients can branch without parsing text.
func (h *Handlers) writeWorkflowError(w http.ResponseWriter, err error) {
	var wfErr *workflow.Error
	if errors.As(err, &wfErr) {
		code := http.StatusInternalServerError
		switch wfErr.Kind {
		case workflow.KindConflict:
			code = http.StatusConflict
		case workflow.KindValidation:
			code = http.StatusUnprocessableEntity
		case workflow.KindAuthorization:
			code = http.StatusForbidden
		case workflow.KindNotFound:
			code = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{"error": wfErr.Detail, "kind": wfErr.Kind, "reason": wfErr.Reason})
		return
	}
	h.jsonError(w, err.Error(), http.StatusInternalServerError)
}

func urlID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func queryInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return n
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// timePtr parses an optional RFC 3339 timestamp from a request field.
func timePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
