package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPanel(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPGateway_PlaceOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "secret", r.PostForm.Get("key"))
			assert.Equal(t, "add", r.PostForm.Get("action"))
			assert.Equal(t, "1021", r.PostForm.Get("service"))
			assert.Equal(t, "https://instagram.com/p/abc", r.PostForm.Get("link"))
			assert.Equal(t, "2000", r.PostForm.Get("quantity"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"order": 23501}`))
		})

		g := NewHTTPGateway(srv.URL, "secret", time.Second)
		id, err := g.PlaceOrder(context.Background(), "1021", "https://instagram.com/p/abc", 2000)
		require.NoError(t, err)
		assert.Equal(t, "23501", id)
	})

	t.Run("upstream error body", func(t *testing.T) {
		srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error": "Not enough funds on balance"}`))
		})

		_, err := NewHTTPGateway(srv.URL, "k", time.Second).PlaceOrder(context.Background(), "1", "l", 1)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorContains(t, err, "Not enough funds")
	})

	t.Run("server error", func(t *testing.T) {
		srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := NewHTTPGateway(srv.URL, "k", time.Second).PlaceOrder(context.Background(), "1", "l", 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("malformed reply", func(t *testing.T) {
		srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>maintenance</html>`))
		})

		_, err := NewHTTPGateway(srv.URL, "k", time.Second).PlaceOrder(context.Background(), "1", "l", 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("missing order id", func(t *testing.T) {
		srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})

		_, err := NewHTTPGateway(srv.URL, "k", time.Second).PlaceOrder(context.Background(), "1", "l", 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(`{"order": 1}`))
		})

		_, err := NewHTTPGateway(srv.URL, "k", 50*time.Millisecond).PlaceOrder(context.Background(), "1", "l", 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestHTTPGateway_GetStatus(t *testing.T) {
	srv := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "status", r.PostForm.Get("action"))
		switch r.PostForm.Get("order") {
		case "1":
			w.Write([]byte(`{"charge":"0.27","start_count":"3572","status":"Completed","remains":"0","currency":"USD"}`))
		case "2":
			w.Write([]byte(`{"status":"In progress"}`))
		default:
			w.Write([]byte(`{"error":"Incorrect order ID"}`))
		}
	})
	g := NewHTTPGateway(srv.URL, "k", time.Second)
	ctx := context.Background()

	status, err := g.GetStatus(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.True(t, status.Final())

	status, err = g.GetStatus(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, status)
	assert.False(t, status.Final())

	_, err = g.GetStatus(ctx, "3")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusCanceled, parseStatus("Cancelled"))
	assert.Equal(t, StatusPartial, parseStatus(" Partial "))
	assert.Equal(t, StatusPending, parseStatus("Pending"))
	assert.Equal(t, StatusUnknown, parseStatus("weird"))
}
