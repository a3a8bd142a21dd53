package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/binder"
	"github.com/dmitrymomot/notifykit/handler"
)

type echoRequest struct {
	Name string `json:"name"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap(t *testing.T) {
	t.Parallel()

	quiet := handler.NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	echo := handler.Wrap(func(ctx handler.Context, req echoRequest) handler.Response {
		if req.Name == "" {
			return handler.JSONError(handler.ValidationError{"name": {"is required"}})
		}
		if req.Name == "missing" {
			return handler.JSONError(errors.Join(handler.ErrNotFound, errors.New("no such thing")))
		}
		if req.Name == "boom" {
			return handler.JSONError(errors.New("database exploded"))
		}
		return handler.JSON(req, handler.WithJSONStatus(http.StatusCreated), handler.WithJSONMeta(map[string]any{"v": 1}))
	},
		handler.WithBinders[echoRequest](binder.BindJSON()),
		handler.WithErrorHandler[echoRequest](quiet),
	)

	call := func(contentType, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		echo(rec, r)
		return rec
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		rec := call("application/json", `{"name":"ada"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"data":{"name":"ada"},"meta":{"v":1}}`, rec.Body.String())
	})

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()
		rec := call("application/json", `{"name":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		require.NotNil(t, body.Error)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Equal(t, []string{"is required"}, body.Error.Details["name"])
	})

	t.Run("http error keeps cause message", func(t *testing.T) {
		t.Parallel()
		rec := call("application/json", `{"name":"missing"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "not_found", body.Error.Code)
		assert.Equal(t, "no such thing", body.Error.Message)
	})

	t.Run("unknown errors are hidden", func(t *testing.T) {
		t.Parallel()
		rec := call("application/json", `{"name":"boom"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "exploded")
	})

	t.Run("bad json", func(t *testing.T) {
		t.Parallel()
		rec := call("application/json", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decodeBody(t, rec).Error.Code)
	})

	t.Run("wrong media type", func(t *testing.T) {
		t.Parallel()
		rec := call("text/plain", `name=ada`)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestWrap_NilResponseAndDecorators(t *testing.T) {
	t.Parallel()

	var order []string
	deco := func(name string) handler.Decorator[struct{}] {
		return func(next handler.HandlerFunc[struct{}]) handler.HandlerFunc[struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	buf := &bytes.Buffer{}
	h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return nil },
		handler.WithDecorators(deco("outer"), deco("inner")),
		handler.WithErrorHandler[struct{}](handler.NewErrorHandler(slog.New(slog.NewJSONHandler(buf, nil)))),
	)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), handler.ErrNilResponse.Error())
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestWrap_OptionalBinderSkipped(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(_ handler.Context, req echoRequest) handler.Response {
		return handler.JSON(req)
	}, handler.WithBinders[echoRequest](binder.OptionalJSON()))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
