// Package notify implements the Telegram Bot API transport used for token
// alerts and their interactive buttons.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// InlineKeyboardButton is one button of an inline keyboard row.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InlineKeyboard is the reply_markup payload for interactive messages.
type InlineKeyboard struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// Message is the subset of a Telegram message the bot consumes.
type Message struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data"`
	Message *Message `json:"message"`
	From    struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

// Update is one getUpdates entry.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// apiResponse is the generic Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// TelegramClient is a thin Bot API client. All sends are idempotent from the
// caller's point of view; retries happen at the job-queue layer.
type TelegramClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewTelegramClient creates a client for the given bot token. baseURL is the
// Bot API host, normally "https://api.telegram.org".
func NewTelegramClient(baseURL, token string) *TelegramClient {
	return &TelegramClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 65 * time.Second},
	}
}

// SendMessage delivers an HTML-formatted message, optionally with an inline
// keyboard, and returns the delivered message ID.
func (t *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) (int64, error) {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	result, err := t.call(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}

	var msg Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("telegram: decode sendMessage result: %w", err)
	}
	return msg.MessageID, nil
}

// EditMessageText replaces the text (and keyboard) of a delivered message.
func (t *TelegramClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboard) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	_, err := t.call(ctx, "editMessageText", payload)
	return err
}

// DeleteMessage removes a message from the chat.
func (t *TelegramClient) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := t.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	})
	return err
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing its spinner.
func (t *TelegramClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	_, err := t.call(ctx, "answerCallbackQuery", payload)
	return err
}

// GetUpdates long-polls for updates after offset. timeout is the server-side
// hold in seconds.
func (t *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	result, err := t.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	return updates, nil
}

// call posts a method payload to the Bot API and unwraps the envelope.
func (t *TelegramClient) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("telegram: %s failed: %s", method, envelope.Description)
	}
	return envelope.Result, nil
}
