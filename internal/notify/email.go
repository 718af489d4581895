package notify

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
)

// Email delivers the operator notification through the Resend API.
type Email struct {
	APIKey string
	From   string
	To     string
	APIURL string
	HTTP   *http.Client
}

func NewEmail(cfg config.ResendConfig, to string) *Email {
	return &Email{APIKey: cfg.APIKey, From: cfg.From, To: to, APIURL: strings.TrimRight(cfg.APIURL, "/")}
}

func (e *Email) Enabled() bool { return e.APIKey != "" && e.To != "" }

func (e *Email) Name() string { return "email" }

func (e *Email) NotifyOrderPlaced(ctx context.Context, s Summary) error {
	body, err := EmailHTML(s)
	if err != nil {
		return err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+e.APIKey)
	return postJSON(ctx, e.HTTP, e.APIURL+"/emails", h, map[string]any{
		"from":    e.From,
		"to":      []string{e.To},
		"subject": EmailSubject(s),
		"html":    body,
	}, nil)
}
