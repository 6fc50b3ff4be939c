package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"launchpad_backend/internal/config"
	"launchpad_backend/internal/platform/metrics"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names a transactional message.
type Template string

const (
	TemplateWelcome         Template = "welcome"
	TemplateProductApproved Template = "product_approved"
	TemplateProductRejected Template = "product_rejected"
	TemplatePaymentReceipt  Template = "payment_receipt"
)

var allTemplates = []Template{
	TemplateWelcome,
	TemplateProductApproved,
	TemplateProductRejected,
	TemplatePaymentReceipt,
}

type WelcomeData struct {
	Name    string
	SiteURL string
}

type ProductData struct {
	Name        string
	ProductName string
	ProductURL  string
	Reason      string
}

type ReceiptData struct {
	Name        string
	ProductName string
	Plan        string
	Amount      string
	ValidUntil  string
	ProductURL  string
}

// Sender queues a templated message for delivery.
type Sender interface {
	Send(to string, tmpl Template, data interface{})
}

// Relay renders templates and delivers them in the background. Failures are
// logged and counted, never retried.
type Relay struct {
	provider  Provider
	templates map[Template]*template.Template
	timeout   time.Duration
	metrics   metrics.Recorder
	logger    *zap.Logger
	wg        sync.WaitGroup
}

var _ Sender = (*Relay)(nil)

func NewRelay(provider Provider, cfg *config.Config, recorder metrics.Recorder, logger *zap.Logger) (*Relay, error) {
	templates := make(map[Template]*template.Template, len(allTemplates))
	for _, name := range allTemplates {
		t, err := template.ParseFS(templateFS, "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		templates[name] = t
	}
	timeout := cfg.EmailTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Relay{
		provider:  provider,
		templates: templates,
		timeout:   timeout,
		metrics:   recorder,
		logger:    logger.Named("email_relay"),
	}, nil
}

// Send renders synchronously and delivers asynchronously.
func (r *Relay) Send(to string, tmpl Template, data interface{}) {
	if strings.TrimSpace(to) == "" {
		return
	}
	subject, body, err := r.render(tmpl, data)
	if err != nil {
		r.logger.Error("Failed to render email", zap.String("template", string(tmpl)), zap.Error(err))
		r.metrics.RecordEmail(string(tmpl), false)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		err := r.provider.Send(ctx, []string{to}, subject, body)
		r.metrics.RecordEmail(string(tmpl), err == nil)
		if err != nil {
			r.logger.Warn("Failed to send email", zap.String("template", string(tmpl)), zap.String("to", to), zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight send has finished.
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) render(tmpl Template, data interface{}) (string, string, error) {
	t, ok := r.templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", tmpl)
	}
	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", data); err != nil {
		return "", "", err
	}
	if err := t.ExecuteTemplate(&body, "body", data); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}
