package smsgateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *Sender {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewSender(Config{
		BaseURL:           server.URL,
		AccountSID:        "AC123",
		AuthToken:         "secret",
		FromNumber:        "+15550001111",
		MessagesPerSecond: 1000,
		Burst:             1000,
	}, zap.NewNop())
}

func TestSendPostsFormWithAuth(t *testing.T) {
	var captured struct {
		path string
		to   string
		from string
		body string
		user string
		pass string
		ok   bool
	}

	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		captured.path = r.URL.Path
		captured.to = r.PostForm.Get("To")
		captured.from = r.PostForm.Get("From")
		captured.body = r.PostForm.Get("Body")
		captured.user, captured.pass, captured.ok = r.BasicAuth()

		w.WriteHeader(http.StatusCreated)
	})

	err := sender.Send(context.Background(), "+15557654321", "Weather for London")

	require.NoError(t, err)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", captured.path)
	assert.Equal(t, "+15557654321", captured.to)
	assert.Equal(t, "+15550001111", captured.from)
	assert.Equal(t, "Weather for London", captured.body)
	assert.True(t, captured.ok)
	assert.Equal(t, "AC123", captured.user)
	assert.Equal(t, "secret", captured.pass)
}

func TestSendGatewayRejection(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := sender.Send(context.Background(), "+15557654321", "hello")

	var deliveryErr *domain.DeliveryError

	require.ErrorAs(t, err, &deliveryErr)
	assert.Contains(t, deliveryErr.Detail, "status 401")
}

func TestSendTransportFailure(t *testing.T) {
	sender := NewSender(Config{
		BaseURL:           "http://127.0.0.1:1",
		AccountSID:        "AC123",
		AuthToken:         "secret",
		FromNumber:        "+15550001111",
		MessagesPerSecond: 1000,
		Burst:             1000,
	}, zap.NewNop())

	err := sender.Send(context.Background(), "+15557654321", "hello")

	var deliveryErr *domain.DeliveryError

	assert.ErrorAs(t, err, &deliveryErr)
}

func TestSendCanceledWhileWaiting(t *testing.T) {
	sender := NewSender(Config{
		BaseURL:           "http://127.0.0.1:1",
		AccountSID:        "AC123",
		AuthToken:         "secret",
		FromNumber:        "+15550001111",
		MessagesPerSecond: 0.001,
		Burst:             1,
	}, zap.NewNop())

	// Drain the single burst token so the next send must wait.
	require.NoError(t, sender.limiter.WaitN(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sender.Send(ctx, "+15557654321", "hello")

	var deliveryErr *domain.DeliveryError

	require.ErrorAs(t, err, &deliveryErr)
	assert.Contains(t, deliveryErr.Detail, "rate limiter")
}
