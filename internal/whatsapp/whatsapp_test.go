package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInternationalDigits(t *testing.T) {
	require.Equal(t, "966501234567", InternationalDigits("0501234567", ""))
	require.Equal(t, "966501234567", InternationalDigits("+966 50 123 4567", ""))
	require.Equal(t, "966501234567", InternationalDigits("00966501234567", ""))
	require.Equal(t, "20101234567", InternationalDigits("0101234567", "20"))
	require.Equal(t, "", InternationalDigits("--", ""))
}

func TestClickToChatURL(t *testing.T) {
	link := ClickToChatURL("0501234567", "", "Order ABC ready")
	require.Equal(t, "https://wa.me/966501234567?text=Order+ABC+ready", link)
	require.Equal(t, "https://wa.me/966501234567", ClickToChatURL("0501234567", "", ""))
	require.Equal(t, "", ClickToChatURL("", "", "x"))
}

func TestClientSendText(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/send/message", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "shop", user)
		require.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"code":"SUCCESS","message":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "shop", "secret", time.Second)
	require.NoError(t, client.SendText(context.Background(), "0501234567", "hello"))
	require.Equal(t, "966501234567@s.whatsapp.net", got.Phone)
	require.Equal(t, "hello", got.Message)
}

func TestClientSendTextErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("down"))
	}))
	defer server.Close()

	err := NewClient(server.URL, "", "", time.Second).SendText(context.Background(), "0501234567", "x")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "502"))

	require.ErrorIs(t, NewClient("", "", "", 0).SendText(context.Background(), "1", "x"), ErrDisabled)
}
