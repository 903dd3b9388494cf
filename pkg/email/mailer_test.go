package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	sent []*Message
	err  error
}

func (r *recordingTransport) Send(ctx context.Context, msg *Message) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, msg)
	return fmt.Sprintf("msg-%d", len(r.sent)), nil
}

func (r *recordingTransport) GetName() string { return "recording" }

func newTestMailer(t *testing.T, transport Transport) *Mailer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	mailer, err := NewMailer(transport, Config{
		From:               "bakano@bakano.ec",
		InternalRecipients: []string{"ops@bakano.ec"},
		PolicyURL:          "https://mkt.bakano.ec/politicas",
		SupportEmail:       "soporte@bakano.ec",
		FrontendHost:       "onboarding.bakano.ec",
	}, logger)
	require.NoError(t, err)
	return mailer
}

func TestRendererParsesEveryTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	for _, name := range templateNames {
		html, err := renderer.Render(name, map[string]interface{}{})
		require.NoError(t, err, name)
		assert.Contains(t, html, "<!DOCTYPE html>")
	}

	_, err = renderer.Render("missing", nil)
	assert.Error(t, err)
}

func TestSendOnboarding(t *testing.T) {
	transport := &recordingTransport{}
	mailer := newTestMailer(t, transport)

	require.NoError(t, mailer.SendOnboarding(context.Background(), "ana@example.com", "Ana", "client-1", "biz-1"))

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, msg.To)
	assert.Equal(t, "bakano@bakano.ec", msg.From)
	assert.Equal(t, SubjectOnboarding, msg.Subject)
	assert.Contains(t, msg.HTML, "https://onboarding.bakano.ec/client-1/biz-1")
	assert.Contains(t, msg.HTML, "Hola Ana")
}

func TestSendEscapesUserContent(t *testing.T) {
	transport := &recordingTransport{}
	mailer := newTestMailer(t, transport)

	require.NoError(t, mailer.SendPaymentConfirmation(context.Background(), "ana@example.com", "<script>x</script>", "Café"))
	assert.NotContains(t, transport.sent[0].HTML, "<script>x</script>")
}

func TestSendUploadNotification(t *testing.T) {
	transport := &recordingTransport{}
	mailer := newTestMailer(t, transport)

	err := mailer.SendUploadNotification(context.Background(), "Café Central", "biz-1", []string{"https://cdn.example.com/a.pdf"})
	require.NoError(t, err)

	msg := transport.sent[0]
	assert.Equal(t, []string{"ops@bakano.ec"}, msg.To)
	assert.Contains(t, msg.HTML, "https://admin.bakano.ec/business/biz-1")
	assert.Contains(t, msg.HTML, "https://cdn.example.com/a.pdf")
}

func TestSendWithoutRecipients(t *testing.T) {
	mailer := newTestMailer(t, &recordingTransport{})
	err := mailer.SendUploadReminder(context.Background(), []string{" ", ""}, "Café", "c", "b")
	assert.Error(t, err)
}

func TestSendTransportFailure(t *testing.T) {
	mailer := newTestMailer(t, &recordingTransport{err: fmt.Errorf("rate limited")})
	err := mailer.SendPolicy(context.Background(), "ana@example.com", "Ana", "Café")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send policy email")
}

func TestResendTransport(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer server.Close()

	transport, err := NewResendTransport("re_test").WithBaseURL(server.URL)
	require.NoError(t, err)

	id, err := transport.Send(context.Background(), &Message{
		From:    "bakano@bakano.ec",
		To:      []string{"ana@example.com"},
		Subject: "Hola",
		HTML:    "<p>hola</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "email-123", id)
	assert.Equal(t, "Hola", body["subject"])
}
