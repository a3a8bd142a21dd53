package push_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/push"
)

func TestIsExpoToken(t *testing.T) {
	t.Parallel()

	assert.True(t, push.IsExpoToken("ExponentPushToken[abc]"))
	assert.True(t, push.IsExpoToken("ExpoPushToken[abc]"))
	assert.False(t, push.IsExpoToken("fcm-token-123"))
	assert.False(t, push.IsExpoToken(""))
}

type recordingProvider struct {
	name  string
	calls []string
}

func (r *recordingProvider) Name() string { return r.name }

func (r *recordingProvider) Send(_ context.Context, msg push.Message) (string, error) {
	r.calls = append(r.calls, msg.Token)
	return r.name + "-id", nil
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("routes expo tokens to expo", func(t *testing.T) {
		t.Parallel()
		def := &recordingProvider{name: "fcm"}
		expo := &recordingProvider{name: "expo"}
		r := push.Router{Default: def, Expo: expo}

		id, err := r.Send(context.Background(), push.Message{Token: "ExponentPushToken[x]"})
		require.NoError(t, err)
		assert.Equal(t, "expo-id", id)

		id, err = r.Send(context.Background(), push.Message{Token: "native"})
		require.NoError(t, err)
		assert.Equal(t, "fcm-id", id)

		assert.Equal(t, []string{"ExponentPushToken[x]"}, expo.calls)
		assert.Equal(t, []string{"native"}, def.calls)
		assert.Equal(t, "fcm", r.Name())
	})

	t.Run("names the backends actually used", func(t *testing.T) {
		t.Parallel()
		r := push.Router{Default: &recordingProvider{name: "fcm"}, Expo: &recordingProvider{name: "expo"}}

		assert.Equal(t, "expo", r.NameFor("ExponentPushToken[x]"))
		assert.Equal(t, "fcm", r.NameFor("native"))
		assert.Equal(t, "expo", push.ProviderName(r, "ExponentPushToken[a]", "ExpoPushToken[b]"))
		assert.Equal(t, "fcm+expo", push.ProviderName(r, "native", "ExponentPushToken[a]", "other"))
		assert.Equal(t, "fcm", push.ProviderName(r))
		assert.Equal(t, "mock-push", push.ProviderName(push.NewMockProvider(), "ExponentPushToken[a]"))
	})

	t.Run("without expo everything goes to default", func(t *testing.T) {
		t.Parallel()
		def := &recordingProvider{name: "fcm"}
		r := push.Router{Default: def}

		_, err := r.Send(context.Background(), push.Message{Token: "ExpoPushToken[y]"})
		require.NoError(t, err)
		assert.Len(t, def.calls, 1)
	})
}

func TestMockProvider(t *testing.T) {
	t.Parallel()

	t.Run("succeeds by default", func(t *testing.T) {
		t.Parallel()
		p := push.NewMockProvider()

		id, err := p.Send(context.Background(), push.Message{Token: "t"})
		require.NoError(t, err)
		assert.Regexp(t, `^mock-push-\d+-\d{6}$`, id)
		assert.Equal(t, "mock-push", p.Name())
	})

	t.Run("always fails at rate one", func(t *testing.T) {
		t.Parallel()
		p := push.NewMockProvider(push.WithMockFailureRate(1))

		_, err := p.Send(context.Background(), push.Message{Token: "t"})
		assert.ErrorIs(t, err, push.ErrMockFailure)
	})

	t.Run("requires token", func(t *testing.T) {
		t.Parallel()
		_, err := push.NewMockProvider().Send(context.Background(), push.Message{})
		assert.ErrorIs(t, err, push.ErrMissingToken)
	})

	t.Run("honours context during latency", func(t *testing.T) {
		t.Parallel()
		p := push.NewMockProvider(push.WithMockLatency(time.Second, 2*time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := p.Send(ctx, push.Message{Token: "t"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestFCMProvider(t *testing.T) {
	t.Parallel()

	msg := push.Message{
		Token: "device-token",
		Title: "Hello",
		Body:  "World",
		Data:  map[string]string{"type": "alert", "notificationId": "n1"},
	}

	t.Run("sends v1 message", func(t *testing.T) {
		t.Parallel()

		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/projects/demo/messages:send", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &got))
			_, _ = w.Write([]byte(`{"name":"projects/demo/messages/0:123"}`))
		}))
		defer srv.Close()

		p := push.NewFCMProviderWithClient(srv.Client(), "demo", push.WithFCMEndpoint(srv.URL))
		id, err := p.Send(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, "projects/demo/messages/0:123", id)

		m := got["message"].(map[string]any)
		assert.Equal(t, "device-token", m["token"])
		assert.Equal(t, map[string]any{"title": "Hello", "body": "World"}, m["notification"])
		assert.Equal(t, "n1", m["data"].(map[string]any)["notificationId"])
		android := m["android"].(map[string]any)
		assert.Equal(t, "high", android["priority"])
		aps := m["apns"].(map[string]any)["payload"].(map[string]any)["aps"].(map[string]any)
		assert.Equal(t, "default", aps["sound"])
		assert.EqualValues(t, 1, aps["badge"])
	})

	t.Run("maps unregistered token", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND",
				"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`))
		}))
		defer srv.Close()

		p := push.NewFCMProviderWithClient(srv.Client(), "demo", push.WithFCMEndpoint(srv.URL))
		_, err := p.Send(context.Background(), msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, push.ErrInvalidToken)

		var pe *push.ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "UNREGISTERED", pe.Code)
		assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	})

	t.Run("other errors are provider errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := push.NewFCMProviderWithClient(srv.Client(), "demo", push.WithFCMEndpoint(srv.URL))
		_, err := p.Send(context.Background(), msg)

		var pe *push.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.NotErrorIs(t, err, push.ErrInvalidToken)
		assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		t.Parallel()
		_, err := push.NewFCMProvider(context.Background(), nil)
		assert.ErrorIs(t, err, push.ErrMissingCredentials)
	})
}

func TestExpoProvider(t *testing.T) {
	t.Parallel()

	t.Run("returns ticket id", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			var msgs []map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&msgs))
			if assert.Len(t, msgs, 1) {
				assert.Equal(t, "ExponentPushToken[a]", msgs[0]["to"])
				assert.Equal(t, "default", msgs[0]["sound"])
			}
			_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
		}))
		defer srv.Close()

		p := push.NewExpoProvider(push.WithExpoEndpoint(srv.URL), push.WithExpoAccessToken("secret"))
		id, err := p.Send(context.Background(), push.Message{Token: "ExponentPushToken[a]", Title: "t", Body: "b"})
		require.NoError(t, err)
		assert.Equal(t, "ticket-1", id)
	})

	t.Run("maps device not registered", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"not a valid token","details":{"error":"DeviceNotRegistered"}}]}`))
		}))
		defer srv.Close()

		p := push.NewExpoProvider(push.WithExpoEndpoint(srv.URL))
		_, err := p.Send(context.Background(), push.Message{Token: "ExponentPushToken[a]"})
		assert.ErrorIs(t, err, push.ErrInvalidToken)
	})

	t.Run("ticket error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"too big","details":{"error":"MessageTooBig"}}]}`))
		}))
		defer srv.Close()

		p := push.NewExpoProvider(push.WithExpoEndpoint(srv.URL))
		_, err := p.Send(context.Background(), push.Message{Token: "ExponentPushToken[a]"})

		var pe *push.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "MessageTooBig", pe.Code)
		assert.Equal(t, "too big", pe.Message)
	})
}

func TestNew_Mocks(t *testing.T) {
	t.Parallel()

	p, err := push.New(context.Background(), push.Config{FCMCredentialsFile: "/does/not/exist"}, true)
	require.NoError(t, err)
	assert.Equal(t, "mock-push", p.Name())

	_, err = push.New(context.Background(), push.Config{FCMCredentialsFile: "/does/not/exist"}, false)
	assert.ErrorIs(t, err, push.ErrMissingCredentials)
}
