package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{Token: "TOKEN", ChatID: "-100", BaseURL: srv.URL})
}

func TestSend_PostsToSecurityChat(t *testing.T) {
	var got map[string]interface{}
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1}}`))
	})

	err := c.Send(context.Background(), "help at library")
	require.NoError(t, err)
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "-100", got["chat_id"])
	assert.Equal(t, "help at library", got["text"])
}

func TestSend_ClientErrorIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	err := c.Send(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
}

func TestSend_RateLimitAndServerErrorsAreRetryable(t *testing.T) {
	for _, body := range []string{
		`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":1}}`,
		`{"ok":false,"error_code":502,"description":"Bad Gateway"}`,
	} {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		err := c.Send(context.Background(), "x")
		require.Error(t, err)
		assert.True(t, retry.IsRetryable(err), body)
	}
}

func TestSend_NonJSONBodyUsesStatusCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	})

	err := c.Send(context.Background(), "x")
	assert.True(t, retry.IsRetryable(err))
}

func TestSend_NotConfigured(t *testing.T) {
	c := NewClient(ClientConfig{})
	err := c.Send(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.True(t, retry.IsPermanent(err))
}

func TestSend_RetriedThroughRetrier(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"oops"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	r := retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0))
	err := r.Do(context.Background(), func(ctx context.Context) error {
		return c.Send(ctx, "x")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getMe", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Aegis"}}`))
	})

	require.NoError(t, c.Ping(context.Background()))

	u, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Aegis", u.FirstName)
}
