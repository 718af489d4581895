package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
)

// WhatsApp sends through an UltraMsg instance: one message to the operator
// and an acknowledgement to the customer.
type WhatsApp struct {
	InstanceID  string
	Token       string
	AdminNumber string
	APIURL      string
	HTTP        *http.Client
}

func NewWhatsApp(cfg config.UltraMsgConfig, adminNumber string) *WhatsApp {
	return &WhatsApp{
		InstanceID:  cfg.InstanceID,
		Token:       cfg.Token,
		AdminNumber: adminNumber,
		APIURL:      strings.TrimRight(cfg.APIURL, "/"),
	}
}

func (w *WhatsApp) Enabled() bool { return w.InstanceID != "" && w.Token != "" }

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) send(ctx context.Context, to, text string) error {
	return postJSON(ctx, w.HTTP, w.APIURL+"/"+w.InstanceID+"/messages/chat", nil, map[string]string{
		"token": w.Token,
		"to":    to,
		"body":  text,
	}, nil)
}

func (w *WhatsApp) NotifyOrderPlaced(ctx context.Context, s Summary) error {
	var errs []error
	if w.AdminNumber != "" {
		if err := w.send(ctx, w.AdminNumber, WhatsAppAdminText(s)); err != nil {
			errs = append(errs, fmt.Errorf("admin: %w", err))
		}
	}
	if s.Phone != "" {
		if err := w.send(ctx, s.Phone, WhatsAppCustomerText(s)); err != nil {
			errs = append(errs, fmt.Errorf("customer: %w", err))
		}
	}
	return errors.Join(errs...)
}
