package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// 中文说明：
// Telegram 通知器：推送命中过滤条件的代币，并长轮询接收用户命令。

const defaultTelegramAPI = "https://api.telegram.org"

type Telegram struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client

	// RetryWait is the base pause between send attempts; attempt n waits n*RetryWait.
	RetryWait time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken:  botToken,
		ChatID:    chatID,
		BaseURL:   defaultTelegramAPI,
		Client:    &http.Client{Timeout: 15 * time.Second},
		RetryWait: time.Second,
	}
}

// Update is the subset of a Telegram update the bot reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text"`
	Date      int64  `json:"date"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (t *Telegram) endpoint(method string) string {
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = defaultTelegramAPI
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)
}

// SendText 发送文本到默认 chat（带最多 3 次重试）
func (t *Telegram) SendText(text string) error {
	if strings.TrimSpace(t.ChatID) == "" {
		return fmt.Errorf("Telegram 配置不完整")
	}
	return t.send(context.Background(), t.ChatID, text)
}

// SendTo 发送文本到指定 chat（带最多 3 次重试）
func (t *Telegram) SendTo(ctx context.Context, chatID int64, text string) error {
	return t.send(ctx, strconv.FormatInt(chatID, 10), text)
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	if t.BotToken == "" || chatID == "" {
		return fmt.Errorf("Telegram 配置不完整")
	}
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 && !t.pause(ctx, i) {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		// 4xx other than 429 will not change on retry
		if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
			return lastErr
		}
	}
	return lastErr
}

func (t *Telegram) pause(ctx context.Context, attempt int) bool {
	wait := time.Duration(attempt) * t.RetryWait
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// GetUpdates long-polls for updates after offset, waiting up to timeout seconds.
func (t *Telegram) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	if t.BotToken == "" {
		return nil, fmt.Errorf("Telegram 配置不完整")
	}
	if timeout < 0 {
		timeout = 0
	}
	url := fmt.Sprintf("%s?offset=%d&timeout=%d&allowed_updates=%%5B%%22message%%22%%5D", t.endpoint("getUpdates"), offset, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// the long poll may legitimately outlast the client timeout
	client := *t.Client
	if client.Timeout > 0 && client.Timeout < time.Duration(timeout+10)*time.Second {
		client.Timeout = time.Duration(timeout+10) * time.Second
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode getUpdates: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getUpdates status=%d: %s", resp.StatusCode, out.Description)
	}
	var updates []Update
	if err := json.Unmarshal(out.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}
