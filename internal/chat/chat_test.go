package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skors/reminder-engine/internal/chat"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/stretchr/testify/require"
)

func TestSendDirect(t *testing.T) {
	t.Parallel()

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/direct", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	gateway := chat.NewGateway(chat.Config{BaseURL: srv.URL, APIKey: "key"})

	messageID, err := gateway.SendDirect(context.Background(), "U100", "hello")
	require.NoError(t, err)

	require.NotEmpty(t, messageID)
	require.Equal(t, messageID, got["message_id"], "returned id matches the one sent")
	require.Equal(t, "U100", got["handle"])
	require.Equal(t, "hello", got["content"])
}

func TestSendToChannel(t *testing.T) {
	t.Parallel()

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/channel", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	gateway := chat.NewGateway(chat.Config{BaseURL: srv.URL})

	messageID, err := gateway.SendToChannel(context.Background(), "C42", "weekly digest")
	require.NoError(t, err)

	require.Equal(t, messageID, got["message_id"])
	require.Equal(t, "C42", got["channel_id"])
}

func TestSend_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gateway := chat.NewGateway(chat.Config{BaseURL: srv.URL})

	_, err := gateway.SendDirect(context.Background(), "U100", "hello")

	var statusErr *backoff.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestMention(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<@U100>", chat.Mention("U100"))
}
