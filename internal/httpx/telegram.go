package httpx

import (
	"context"
	"html"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type TelegramBot interface {
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error
	EditMessageText(ctx context.Context, chatID string, messageID int64, text string, kb *notify.InlineKeyboardMarkup) error
}

// TelegramWebhook resolves orders from the confirm/cancel buttons on the
// operator message. Telegram retries anything but a 200, so every update is
// acknowledged regardless of outcome.
type TelegramWebhook struct {
	Bot        TelegramBot
	ChatID     string
	Reconciler Transitioner
}

func (h *TelegramWebhook) Register(r chi.Router) {
	r.Post("/telegram/webhook", h.handle)
}

func ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *TelegramWebhook) handle(w http.ResponseWriter, r *http.Request) {
	defer ack(w)

	var u notify.Update
	if err := decodeJSON(r, &u); err != nil {
		logx.Warn().Err(err).Msg("telegram update undecodable")
		return
	}
	cb := u.CallbackQuery
	if cb == nil || cb.Message == nil {
		return
	}

	ctx := r.Context()
	chatID := strconv.FormatInt(cb.Message.Chat.ID, 10)
	if h.ChatID == "" || chatID != h.ChatID {
		logx.Warn().Str("chat_id", chatID).Msg("telegram callback from unauthorized chat")
		return
	}

	action, orderID, ok := notify.ParseCallbackData(cb.Data)
	if !ok {
		h.answer(ctx, cb.ID, "❌ Error: unknown action", true)
		return
	}
	to := orders.StatusCancelled
	if action == notify.ActionConfirm {
		to = orders.StatusConfirmed
	}

	logx.Info().Str("order_id", orderID).Str("action", action).Msg("telegram order action")
	if _, err := h.Reconciler.Transition(ctx, orderID, to); err != nil {
		logx.Error().Err(err).Str("order_id", orderID).Msg("telegram status update failed")
		h.answer(ctx, cb.ID, "❌ Error: "+errx.Message(err), true)
		return
	}

	confirmed := to == orders.StatusConfirmed
	text := "❌ Order Cancelled & Stock Restored!"
	if confirmed {
		text = "✅ Order Confirmed & Stock Updated!"
	}
	h.answer(ctx, cb.ID, text, false)

	// The callback carries the message as plain text, so it is re-escaped
	// before being sent back in HTML mode.
	updated := html.EscapeString(cb.Message.Text) + notify.StatusFooter(confirmed)
	if err := h.Bot.EditMessageText(ctx, chatID, cb.Message.MessageID, updated, notify.EmptyKeyboard()); err != nil {
		logx.Warn().Err(err).Str("order_id", orderID).Msg("telegram message edit failed")
	}
}

func (h *TelegramWebhook) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := h.Bot.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		logx.Warn().Err(err).Msg("telegram answer callback failed")
	}
}
