package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
)

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// EmptyKeyboard removes the buttons from an edited message.
func EmptyKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{}}
}

// Update, CallbackQuery, Message and Chat are the parts of the Bot API
// webhook payload the service reads.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data"`
	Message *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
}

type Chat struct {
	ID int64 `json:"id"`
}

const (
	ActionConfirm = "confirm"
	ActionCancel  = "cancel"
)

// ParseCallbackData splits "confirm_<id>" or "cancel_<id>".
func ParseCallbackData(data string) (action, orderID string, ok bool) {
	action, orderID, found := strings.Cut(data, "_")
	if !found || orderID == "" {
		return "", "", false
	}
	if action != ActionConfirm && action != ActionCancel {
		return "", "", false
	}
	return action, orderID, true
}

func OrderKeyboard(orderID string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
		{Text: "✅ Confirm Order", CallbackData: ActionConfirm + "_" + orderID},
		{Text: "❌ Cancel", CallbackData: ActionCancel + "_" + orderID},
	}}}
}

// Telegram is a minimal Bot API client.
type Telegram struct {
	Token  string
	ChatID string
	APIURL string
	HTTP   *http.Client
}

func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{Token: cfg.BotToken, ChatID: cfg.ChatID, APIURL: strings.TrimRight(cfg.APIURL, "/")}
}

func (t *Telegram) Enabled() bool { return t.Token != "" && t.ChatID != "" }

func (t *Telegram) Name() string { return "telegram" }

type apiResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) call(ctx context.Context, method string, body any) error {
	var res apiResult
	if err := postJSON(ctx, t.HTTP, t.APIURL+"/bot"+t.Token+"/"+method, nil, body, &res); err != nil {
		return err
	}
	if !res.OK {
		return errors.New("telegram " + method + ": " + res.Description)
	}
	return nil
}

func (t *Telegram) SendMessage(ctx context.Context, chatID, text string, kb *InlineKeyboardMarkup) error {
	body := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb != nil {
		body["reply_markup"] = kb
	}
	return t.call(ctx, "sendMessage", body)
}

func (t *Telegram) AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error {
	return t.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        alert,
	})
}

func (t *Telegram) EditMessageText(ctx context.Context, chatID string, messageID int64, text string, kb *InlineKeyboardMarkup) error {
	body := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if kb != nil {
		body["reply_markup"] = kb
	}
	return t.call(ctx, "editMessageText", body)
}

func (t *Telegram) NotifyOrderPlaced(ctx context.Context, s Summary) error {
	var kb *InlineKeyboardMarkup
	if s.OrderID != "" && s.Persisted {
		kb = OrderKeyboard(s.OrderID)
	}
	return t.SendMessage(ctx, t.ChatID, TelegramText(s), kb)
}
