package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"launchpad_backend/internal/config"
	"launchpad_backend/internal/platform/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	to      []string
	subject string
	body    string
}

type recordingProvider struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (p *recordingProvider) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentMessage{to: to, subject: subject, body: htmlBody})
	return p.err
}

func newTestRelay(t *testing.T, provider Provider) *Relay {
	t.Helper()
	relay, err := NewRelay(provider, &config.Config{EmailTimeout: time.Second}, metrics.Nop{}, zap.NewNop())
	require.NoError(t, err)
	return relay
}

func TestRelay_RendersAndDelivers(t *testing.T) {
	provider := &recordingProvider{}
	relay := newTestRelay(t, provider)

	relay.Send("alice@example.com", TemplateProductRejected, ProductData{
		Name:        "alice",
		ProductName: "Rocket",
		ProductURL:  "https://launchpad.test/products/rocket",
		Reason:      "Missing <screenshots>",
	})
	relay.Wait()

	require.Len(t, provider.sent, 1)
	msg := provider.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, msg.to)
	assert.Equal(t, "Changes needed for Rocket", msg.subject)
	assert.Contains(t, msg.body, "Missing &lt;screenshots&gt;")
}

func TestRelay_SkipsEmptyRecipient(t *testing.T) {
	provider := &recordingProvider{}
	relay := newTestRelay(t, provider)

	relay.Send("  ", TemplateWelcome, WelcomeData{Name: "bob"})
	relay.Wait()

	assert.Empty(t, provider.sent)
}

func TestRelay_ProviderFailureIsSwallowed(t *testing.T) {
	provider := &recordingProvider{err: errors.New("connection refused")}
	relay := newTestRelay(t, provider)

	relay.Send("bob@example.com", TemplateWelcome, WelcomeData{Name: "bob", SiteURL: "https://launchpad.test"})
	relay.Wait()

	require.Len(t, provider.sent, 1)
}

func TestRelay_UnknownTemplate(t *testing.T) {
	provider := &recordingProvider{}
	relay := newTestRelay(t, provider)

	relay.Send("bob@example.com", Template("nope"), nil)
	relay.Wait()

	assert.Empty(t, provider.sent)
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("noreply@launchpad.test", []string{"a@example.com"}, "Hi\r\nBcc: evil@example.com", "<p>x</p>"))

	headers := strings.SplitN(msg, "\r\n\r\n", 2)[0]
	assert.NotContains(t, headers, "\r\nBcc:")
}
