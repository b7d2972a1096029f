package bot

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tokenscout/internal/filter"
	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/token"
)

const allowedChat int64 = 1001

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendTo(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

type memSubs struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func (s *memSubs) Add(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids == nil {
		s.ids = map[int64]struct{}{}
	}
	s.ids[id] = struct{}{}
	return nil
}

func (s *memSubs) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return nil
}

func (s *memSubs) List(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out, nil
}

type countingObserver struct {
	mu      sync.Mutex
	updates map[string]int
}

func (o *countingObserver) ObserveCriteriaUpdate(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.updates == nil {
		o.updates = map[string]int{}
	}
	o.updates[source]++
}

type scriptedUpdates struct {
	mu      sync.Mutex
	batches [][]notifier.Update
	offsets []int64
}

func (s *scriptedUpdates) GetUpdates(ctx context.Context, offset int64, _ int) ([]notifier.Update, error) {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	if len(s.batches) > 0 {
		next := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return next, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestBot(t *testing.T) (*Bot, *filter.Store, *memSubs, *countingObserver) {
	t.Helper()
	st, err := filter.NewStore(filter.DefaultCriteria())
	require.NoError(t, err)
	subs := &memSubs{}
	obs := &countingObserver{}
	b := New(Config{AllowedChatIDs: []int64{allowedChat}}, notifier.Discard{}, notifier.Discard{}, st, subs, obs)
	return b, st, subs, obs
}

func msg(chatID int64, text string) notifier.Message {
	return notifier.Message{Chat: notifier.Chat{ID: chatID}, Text: text}
}

func TestParseCommand(t *testing.T) {
	name, args, ok := parseCommand("/Min_Volume@scout_bot 5m  100 ")
	require.True(t, ok)
	assert.Equal(t, "min_volume", name)
	assert.Equal(t, []string{"5m", "100"}, args)

	_, _, ok = parseCommand("hello there")
	assert.False(t, ok)
	_, _, ok = parseCommand("/")
	assert.False(t, ok)
}

func TestHandleUnauthorizedChat(t *testing.T) {
	b, st, _, obs := newTestBot(t)
	ctx := context.Background()

	assert.Equal(t, msgUnauthorized, b.Handle(ctx, msg(42, "/start")))
	assert.Empty(t, b.Handle(ctx, msg(42, "/min_liquidity 500")))
	assert.Empty(t, b.Handle(ctx, msg(42, "/status")))
	assert.Zero(t, st.Snapshot().MinLiquidity)
	assert.Empty(t, obs.updates)
}

func TestHandleCriteriaCommands(t *testing.T) {
	b, st, _, obs := newTestBot(t)
	ctx := context.Background()

	cases := []struct {
		text  string
		reply string
	}{
		{"/start", msgWelcome},
		{"/scan_new_listings on", "Scan new listings only: On"},
		{"/chain_selection specific Solana", "Chain selection updated: solana"},
		{"/min_volume 5m 1000", "Minimum volume for 5m set to 1000"},
		{"/min_volume_usd 25000 1h", "Minimum USD volume for 1h set to 25000"},
		{"/min_price_change 12.5 24h", "Minimum price change for 24h set to 12.5%"},
		{"/min_liquidity 5000", "Minimum liquidity set to 5000"},
		{"/max_supply 1000000000", "Maximum supply set to 1000000000"},
		{"/min_market_cap 10000", "Minimum market cap set to 10000"},
		{"/max_market_cap 5000000", "Maximum market cap set to 5000000"},
		{"/token_security on", "Token security check: On"},
		{"/creator_threshold 20", "Creator ownership threshold set to 20%"},
		{"/supply_traded_percentage 5%", "Minimum supply traded percentage set to 5%"},
		{"/first_mint_date 2024-03-01", "First mint date set to 2024-03-01"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.reply, b.Handle(ctx, msg(allowedChat, tc.text)), tc.text)
	}

	c := st.Snapshot()
	assert.True(t, c.ScanNewListingsOnly)
	assert.Equal(t, []string{"solana"}, c.Chains)
	assert.Equal(t, 1000.0, c.MinVolume[token.Period5m])
	assert.Equal(t, 25000.0, c.MinVolumeUSD[token.Period1h])
	assert.Equal(t, 12.5, c.MinPriceChange[token.Period24h])
	assert.Equal(t, 5000.0, c.MinLiquidity)
	assert.Equal(t, 1e9, c.MaxSupply)
	assert.Equal(t, 10000.0, c.MinMarketCap)
	assert.Equal(t, 5e6, c.MaxMarketCap)
	assert.True(t, c.TokenSecurity)
	assert.Equal(t, 20.0, c.MaxCreatorOwnership)
	assert.Equal(t, 5.0, c.MinSupplyTraded)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), c.FirstMintDate)
	assert.Equal(t, 13, obs.updates["telegram"])

	assert.Equal(t, "Maximum market cap set to unlimited", b.Handle(ctx, msg(allowedChat, "/max_market_cap 0")))
	assert.Equal(t, math.MaxFloat64, st.Snapshot().MaxMarketCap)
	assert.Equal(t, "Maximum supply set to unlimited", b.Handle(ctx, msg(allowedChat, "/max_supply 0")))
	assert.Zero(t, st.Snapshot().MaxSupply)

	assert.Equal(t, "Chain selection updated: all", b.Handle(ctx, msg(allowedChat, "/chain_selection all")))
	assert.Equal(t, []string{filter.AllChains}, st.Snapshot().Chains)
}

func TestHandleRejectsBadInput(t *testing.T) {
	b, st, _, obs := newTestBot(t)
	ctx := context.Background()
	before := st.Snapshot()

	cases := map[string]string{
		"/min_volume 5m":                  `Usage: /min\_volume \[time\_period\] \[value\]`,
		"/min_volume 5m lots":             msgInvalidValue,
		"/min_volume 7m 10":               `Invalid time period "7m". Use one of: 5m, 10m, 1h, 24h`,
		"/min_liquidity":                  `Usage: /min\_liquidity \[value\]`,
		"/min_liquidity NaN":              msgInvalidValue,
		"/token_security maybe":           `Usage: /token\_security \[on/off\]`,
		"/chain_selection specific":       "Please specify a chain name for specific selection.",
		"/chain_selection some":           `Usage: /chain\_selection \[all/specific\] \[chain\_name\]`,
		"/first_mint_date yesterday":      "Invalid date format. Please use YYYY-MM-DD.",
		"/min_liquidity -5":               "Update rejected: min\\_liquidity must be a number >= 0",
		"/definitely_not_a_command 1 2 3": `Unknown command. Use /help to see available commands.`,
	}
	for text, want := range cases {
		assert.Equal(t, want, b.Handle(ctx, msg(allowedChat, text)), text)
	}
	assert.Equal(t, before, st.Snapshot())
	assert.Zero(t, obs.updates["telegram"])

	// min above max is rejected as a whole
	b.Handle(ctx, msg(allowedChat, "/max_market_cap 100"))
	reply := b.Handle(ctx, msg(allowedChat, "/min_market_cap 500"))
	assert.Contains(t, reply, "Update rejected")
	assert.Zero(t, st.Snapshot().MinMarketCap)
}

func TestSubscribeAndStatus(t *testing.T) {
	b, _, subs, _ := newTestBot(t)
	ctx := context.Background()

	status := b.Handle(ctx, msg(allowedChat, "/status"))
	assert.Contains(t, status, "Current settings:")
	assert.Contains(t, status, "max_market_cap: unlimited")
	assert.Contains(t, status, "1970-01-01")
	assert.Contains(t, status, "Subscribed to updates: No")

	assert.Equal(t, "You have subscribed to real-time updates.", b.Handle(ctx, msg(allowedChat, "/subscribe")))
	ids, _ := subs.List(ctx)
	assert.Equal(t, []int64{allowedChat}, ids)

	b.Handle(ctx, msg(allowedChat, "/min_volume 10m 250"))
	status = b.Handle(ctx, msg(allowedChat, "/status"))
	assert.Contains(t, status, "10m: 250")
	assert.Contains(t, status, "Subscribed to updates: Yes")

	assert.Equal(t, "You have unsubscribed from real-time updates.", b.Handle(ctx, msg(allowedChat, "/unsubscribe")))
	ids, _ = subs.List(ctx)
	assert.Empty(t, ids)
}

func TestHelpListsEveryCommand(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	help := b.Handle(context.Background(), msg(allowedChat, "/help"))
	for name := range b.commands {
		assert.Contains(t, help, "/"+notifier.EscapeMarkdown(name))
	}
}

func TestRunRepliesAndAdvancesOffset(t *testing.T) {
	st, err := filter.NewStore(filter.DefaultCriteria())
	require.NoError(t, err)
	src := &scriptedUpdates{batches: [][]notifier.Update{{
		{UpdateID: 7, Message: &notifier.Message{Chat: notifier.Chat{ID: allowedChat}, Text: "/start"}},
		{UpdateID: 8},
		{UpdateID: 9, Message: &notifier.Message{Chat: notifier.Chat{ID: allowedChat}, Text: "just chatting"}},
	}}}
	sender := &MockSender{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender.On("SendTo", mock.Anything, allowedChat, msgWelcome).Return(nil).Run(func(mock.Arguments) {
		cancel()
	}).Once()

	b := New(Config{AllowedChatIDs: []int64{allowedChat}, PollTimeout: 1}, src, sender, st, nil, nil)
	require.NoError(t, b.Run(ctx))

	sender.AssertExpectations(t)
	assert.Equal(t, int64(10), b.offset)
	assert.Equal(t, int64(0), src.offsets[0])
}
