package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errx.StatusOf(err)
	if code >= http.StatusInternalServerError {
		logx.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
	}
	writeJSON(w, code, errorBody{Error: errx.Message(err), Kind: errx.KindOf(err).String()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errx.Validation("request body is empty")
		}
		return errx.Validation("invalid json: %v", err)
	}
	return nil
}

// intQuery reads a positive integer query parameter, falling back to def
// when absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errx.Validation("%s must be a positive integer", name)
	}
	return n, nil
}
