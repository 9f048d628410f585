package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
	"github.com/nimasrn/seva-booking/pkg/logger"
)

type errorResponse struct {
	Error string    `json:"error"`
	Kind  errs.Kind `json:"kind"`
}

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("[handlers] failed to encode response", "error", err)
		status = xhttp.StatusInternalServerError
		b = []byte(`{"error":"failed to encode response","kind":"store"}`)
	}
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, kind errs.Kind, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg, Kind: kind})
}

// writeServiceError maps an error kind to its status. Store errors are
// logged with their cause and answered with a generic message.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	kind := errs.KindOf(err)
	status := errs.HTTPStatus(kind)
	msg := err.Error()
	if kind == errs.KindStore {
		logger.Error("[handlers] store failure", "path", string(ctx.Path()), "error", err)
		if e, ok := errs.As(err); ok {
			msg = e.Msg
		} else {
			msg = "internal error"
		}
	}
	writeError(ctx, status, kind, msg)
}

func writeBadJSON(ctx *xhttp.RequestCtx, err error) {
	writeError(ctx, xhttp.StatusBadRequest, errs.KindValidation, "invalid JSON: "+err.Error())
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// queryInt reads a non-negative integer; a missing key is 0.
func queryInt(ctx *xhttp.RequestCtx, key string) (int, error) {
	v := query(ctx, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errs.Validation("%s must be a non-negative integer", key)
	}
	return n, nil
}

func queryUUID(ctx *xhttp.RequestCtx, key string) (*uuid.UUID, error) {
	v := query(ctx, key)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, errs.Validation("%s must be a uuid", key)
	}
	return &id, nil
}

// pathUUID reads a {name} route parameter.
func pathUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, error) {
	v, _ := ctx.UserValue(name).(string)
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, errs.Validation("%s must be a uuid", name)
	}
	return id, nil
}
