package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// statusError is implemented by domain errors that carry an HTTP-equivalent
// status.
type statusError interface {
	error
	HTTPStatus() int
}

// writeJSON encodes v as the response body.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Error("Encode response", zap.Error(err))
	}
}

// writeError writes the error envelope: {"error": {"code": N, "message": M}}.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Int(status) })
				e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(e.Bytes())
}

// writeDomainError maps a service error onto the envelope. Domain errors know
// their status; anything else is a 500 with the details kept out of the body.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var se statusError
	if errors.As(err, &se) {
		writeError(w, se.HTTPStatus(), se.Error())
		return
	}
	zctx.From(ctx).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error!")
}
