package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegram(t *testing.T, h http.HandlerFunc) *Telegram {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tg := NewTelegram("TOKEN", "100")
	tg.BaseURL = srv.URL
	tg.RetryWait = time.Millisecond
	return tg
}

func TestTelegram_SendTo(t *testing.T) {
	var got map[string]any
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, tg.SendTo(context.Background(), -42, "hello"))
	assert.Equal(t, "-42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])

	require.NoError(t, tg.SendText("default chat"))
	assert.Equal(t, "100", got["chat_id"])
}

func TestTelegram_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	require.NoError(t, tg.SendTo(context.Background(), 1, "x"))
	assert.EqualValues(t, 3, calls.Load())
}

func TestTelegram_DoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	err := tg.SendTo(context.Background(), 1, "x")
	assert.ErrorContains(t, err, "status=400")
	assert.EqualValues(t, 1, calls.Load())
}

func TestTelegram_Incomplete(t *testing.T) {
	assert.Error(t, NewTelegram("", "1").SendText("x"))
	assert.Error(t, NewTelegram("tok", "").SendText("x"))
}

func TestTelegram_GetUpdates(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		assert.Equal(t, "0", r.URL.Query().Get("timeout"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"message_id":1,
			"chat":{"id":55,"type":"private"},"from":{"id":55,"username":"alice"},"text":"/status"}}]}`))
	})
	updates, err := tg.GetUpdates(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(7), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, int64(55), updates[0].Message.Chat.ID)
	assert.Equal(t, "/status", updates[0].Message.Text)
}

func TestTelegram_GetUpdatesNotOK(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	})
	_, err := tg.GetUpdates(context.Background(), 0, 0)
	assert.ErrorContains(t, err, "Unauthorized")
}

func TestStructuredMessage_Render(t *testing.T) {
	msg := StructuredMessage{
		Icon:  "🚀",
		Title: "Token match",
		Sections: []MessageSection{
			{Title: "Token", Lines: []string{"Symbol: ABC", " ", "Chain: solana"}},
			{Title: "Empty", Lines: []string{""}},
		},
		Link:      "https://birdeye.so/token/abc",
		Footer:    "cycle ```x```",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	out := msg.RenderMarkdown()
	assert.True(t, strings.HasPrefix(out, "🚀 Token match"))
	assert.Contains(t, out, "- Symbol: ABC\n- Chain: solana")
	assert.NotContains(t, out, "Empty")
	assert.Contains(t, out, "cycle '''x'''")
	assert.Contains(t, out, "Time: 2024-01-01 00:00:00 UTC")

	special := StructuredMessage{
		Title:    "match DOG_WIF *x* [y]",
		Sections: []MessageSection{{Title: "Token", Lines: []string{"Symbol: DOG_WIF"}}},
		Link:     "https://birdeye.so/token/a_b",
		Footer:   "by scout_bot",
	}
	out = special.RenderMarkdown()
	assert.True(t, strings.HasPrefix(out, `match DOG\_WIF \*x\* \[y]`))
	assert.Contains(t, out, "- Symbol: DOG_WIF")
	assert.Contains(t, out, `https://birdeye.so/token/a\_b`)
	assert.Contains(t, out, `by scout\_bot`)

	long := StructuredMessage{Title: strings.Repeat("a", maxStructuredMessageLen+10)}
	assert.True(t, strings.HasSuffix(long.RenderMarkdown(), "..."))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "/min\\_volume \\[5m\\] \\*x\\* \\`y\\`", EscapeMarkdown("/min_volume [5m] *x* `y`"))
	assert.Equal(t, "```\na_b\n```", CodeBlock("a_b\n"))
}
