/*
Package telegram is the chat transport adapter for the Telegram Bot API.

It contains a minimal long-poll client (getUpdates/sendMessage over plain
HTTP) plus the Bot loop that turns incoming messages into dispatcher intents.
The rest of the system only sees the Sender and Notifier seams.
*/
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"torwatch/internal/app/node"
)

// DefaultBaseURL is the production Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// maxMessageRunes is Telegram's message length limit, with headroom.
const maxMessageRunes = 3500

// Client is a minimal Telegram Bot API client. It satisfies both the
// dispatcher's Sender and the watchdog's Notifier.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a Client for the given bot token. httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	Chat chat   `json:"chat"`
	Text string `json:"text"`
}

type chat struct {
	ID int64 `json:"id"`
}

type getUpdatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description,omitempty"`
	Result      []update `json:"result"`
}

type sendMessageRequest struct {
	ChatID      int64           `json:"chat_id"`
	Text        string          `json:"text"`
	ReplyMarkup json.RawMessage `json:"reply_markup,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// replyKeyboard is the persistent four-button menu shown under the input box.
var replyKeyboard = json.RawMessage(`{"keyboard":[[{"text":"` + ButtonAdd + `"},{"text":"` + ButtonRemove + `"}],[{"text":"` + ButtonList + `"},{"text":"` + ButtonStatus + `"}]],"resize_keyboard":true}`)

// Reply sends text to the user together with the command keyboard.
func (c *Client) Reply(ctx context.Context, id node.UserID, text string) error {
	return c.send(ctx, int64(id), text)
}

// Notify pushes an unsolicited message to the user (watchdog alerts).
func (c *Client) Notify(ctx context.Context, id node.UserID, text string) error {
	return c.send(ctx, int64(id), text)
}

// send chunks the text at Telegram's length limit and posts each chunk.
func (c *Client) send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text, maxMessageRunes) {
		if err := c.sendMessage(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: replyKeyboard,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4*1024))
		return fmt.Errorf("telegram sendMessage http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed sendMessageResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return err
	}
	if !parsed.OK {
		if strings.TrimSpace(parsed.Description) == "" {
			return fmt.Errorf("telegram sendMessage failed")
		}
		return fmt.Errorf("telegram sendMessage failed: %s", parsed.Description)
	}
	return nil
}

// getUpdates long-polls for new messages starting at offset and returns the
// updates plus the next offset to use.
func (c *Client) getUpdates(ctx context.Context, offset int64, timeoutSec int) ([]update, int64, error) {
	values := url.Values{}
	values.Set("timeout", strconv.Itoa(timeoutSec))
	values.Set("allowed_updates", `["message"]`)
	if offset > 0 {
		values.Set("offset", strconv.FormatInt(offset, 10))
	}

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.token, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, offset, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, offset, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4*1024))
		return nil, offset, fmt.Errorf("telegram getUpdates http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload getUpdatesResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, offset, err
	}
	if !payload.OK {
		if strings.TrimSpace(payload.Description) == "" {
			return nil, offset, fmt.Errorf("telegram getUpdates failed")
		}
		return nil, offset, fmt.Errorf("telegram getUpdates failed: %s", payload.Description)
	}

	nextOffset := offset
	for _, upd := range payload.Result {
		if upd.UpdateID >= nextOffset {
			nextOffset = upd.UpdateID + 1
		}
	}
	return payload.Result, nextOffset, nil
}

// splitMessage cuts text into chunks of at most maxRunes, preferring to
// break at a newline in the back half of a chunk.
func splitMessage(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := start + maxRunes
		if end >= len(runes) {
			out = append(out, strings.TrimSpace(string(runes[start:])))
			break
		}
		split := end
		for i := end; i > start+(maxRunes/2); i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		chunk := strings.TrimSpace(string(runes[start:split]))
		if chunk != "" {
			out = append(out, chunk)
		}
		start = split
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
