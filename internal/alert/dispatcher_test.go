package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tokenscout/internal/scanner"
	"tokenscout/internal/store/sqlite"
	"tokenscout/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendTo(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

type staticSubs []int64

func (s staticSubs) List(context.Context) ([]int64, error) { return s, nil }

type countingObserver struct {
	mu  sync.Mutex
	out map[string]int
}

func (c *countingObserver) ObserveAlert(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		c.out = map[string]int{}
	}
	c.out[outcome]++
}

func match(addr string) scanner.Match {
	return scanner.Match{
		Token: token.Token{
			Chain:       "solana",
			Address:     addr,
			Symbol:      "ABC",
			MarketCap:   1234567.891,
			Liquidity:   5000,
			TotalSupply: 1e9,
			Volume:      map[string]float64{"h24": 98765.4},
			PriceChange: map[string]float64{"h24": -12.345},
		},
		Series:   token.Series{token.Period24h: {VolumeUSD: 1, PriceChangePercent: 2}},
		Security: token.Security{CreatorOwnership: 7.5},
	}
}

func TestFormat(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := Format(match("Addr_1"), at).RenderMarkdown()
	for _, want := range []string{
		"Symbol: ABC",
		"Chain: solana",
		"Address: Addr_1",
		"Market Cap: $1,234,567.89",
		"24h Volume: $98,765.40",
		"24h Price Change: -12.35%",
		"Liquidity: $5,000.00",
		"Total Supply: 1,000,000,000",
		"Creator Ownership: 7.50%",
		`https://birdeye.so/token/Addr\_1?chain=solana`,
	} {
		assert.Contains(t, out, want)
	}

	m := match("x")
	m.Token.Volume = nil
	m.Token.PriceChange = nil
	out = Format(m, at).RenderMarkdown()
	assert.Contains(t, out, "24h Volume: $1.00")
	assert.Contains(t, out, "24h Price Change: 2.00%")
}

func TestAmounts(t *testing.T) {
	assert.Equal(t, "$0.00012346", USD(0.000123456789))
	assert.Equal(t, "$0.00", USD(0))
	assert.Equal(t, "$-1,000.00", USD(-1000))
	assert.Equal(t, "999", Quantity(999.4))
	assert.Equal(t, "1,000", Quantity(999.5))
}

func TestDispatch_SendsToEveryRecipientAndRecords(t *testing.T) {
	db, err := sqlite.NewSqliteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	sender := &MockSender{}
	sender.On("SendTo", mock.Anything, int64(1), mock.Anything).Return(nil)
	sender.On("SendTo", mock.Anything, int64(2), mock.Anything).Return(errors.New("blocked"))
	obs := &countingObserver{}

	d := NewDispatcher(Config{ChatIDs: []int64{1}, AllowedChatIDs: []int64{1, 2}}, sender, staticSubs{1, 2}, db.Alerts(), obs)
	sum := d.Dispatch(context.Background(), "cycle-1", []scanner.Match{match("a"), match("b")})

	assert.Equal(t, Summary{Sent: 2}, sum)
	sender.AssertNumberOfCalls(t, "SendTo", 4)
	assert.Equal(t, 2, obs.out["sent"])

	recent, err := db.Alerts().ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "cycle-1", recent[0].CycleID)
	assert.Equal(t, 2, recent[0].Recipients)
	assert.Equal(t, 1, recent[0].Delivered)
	assert.Contains(t, string(recent[0].Payload), `"creator_ownership":7.5`)
}

func TestDispatch_SubscribersOutsideAllowListAreSkipped(t *testing.T) {
	sender := &MockSender{}
	sender.On("SendTo", mock.Anything, int64(5), mock.Anything).Return(nil)
	sender.On("SendTo", mock.Anything, int64(7), mock.Anything).Return(nil)

	d := NewDispatcher(Config{ChatIDs: []int64{7}, AllowedChatIDs: []int64{5}}, sender, staticSubs{5, 6}, nil, nil)
	sum := d.Dispatch(context.Background(), "c", []scanner.Match{match("a")})

	assert.Equal(t, Summary{Sent: 1}, sum)
	sender.AssertNumberOfCalls(t, "SendTo", 2)
	sender.AssertNotCalled(t, "SendTo", mock.Anything, int64(6), mock.Anything)
}

func TestDispatch_NoAllowListIgnoresSubscribers(t *testing.T) {
	sender := &MockSender{}
	d := NewDispatcher(Config{}, sender, staticSubs{3}, nil, nil)
	assert.Equal(t, Summary{}, d.Dispatch(context.Background(), "c", []scanner.Match{match("a")}))
	sender.AssertNotCalled(t, "SendTo", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_EscapesProviderSymbol(t *testing.T) {
	sender := &MockSender{}
	var sent string
	sender.On("SendTo", mock.Anything, int64(1), mock.Anything).Run(func(args mock.Arguments) {
		sent = args.String(2)
	}).Return(nil)

	m := match("a")
	m.Token.Symbol = "DOG_WIF*"
	d := NewDispatcher(Config{ChatIDs: []int64{1}}, sender, nil, nil, nil)
	require.Equal(t, Summary{Sent: 1}, d.Dispatch(context.Background(), "c", []scanner.Match{m}))

	header, body, ok := strings.Cut(sent, "```")
	require.True(t, ok)
	assert.Contains(t, header, `New token match: DOG\_WIF\*`)
	assert.NotContains(t, header, "DOG_WIF")
	assert.Contains(t, body, "Symbol: DOG_WIF*")
}

func TestDispatch_AllRecipientsFail(t *testing.T) {
	sender := &MockSender{}
	sender.On("SendTo", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down"))
	d := NewDispatcher(Config{ChatIDs: []int64{9}}, sender, nil, nil, nil)
	assert.Equal(t, Summary{Failed: 1}, d.Dispatch(context.Background(), "c", []scanner.Match{match("a")}))
}

func TestDispatch_CooldownSuppressesRepeats(t *testing.T) {
	db, err := sqlite.NewSqliteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	sender := &MockSender{}
	sender.On("SendTo", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDispatcher(Config{ChatIDs: []int64{1}, Cooldown: time.Hour}, sender, nil, db.Alerts(), nil)
	d.now = func() time.Time { return now }

	assert.Equal(t, Summary{Sent: 1}, d.Dispatch(context.Background(), "c1", []scanner.Match{match("a")}))
	now = now.Add(30 * time.Minute)
	assert.Equal(t, Summary{Suppressed: 1}, d.Dispatch(context.Background(), "c2", []scanner.Match{match("a")}))
	now = now.Add(31 * time.Minute)
	assert.Equal(t, Summary{Sent: 1}, d.Dispatch(context.Background(), "c3", []scanner.Match{match("a")}))
}

func TestDispatch_NoCooldownRepeats(t *testing.T) {
	sender := &MockSender{}
	sender.On("SendTo", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d := NewDispatcher(Config{ChatIDs: []int64{1}}, sender, nil, nil, nil)
	for i := 0; i < 2; i++ {
		assert.Equal(t, Summary{Sent: 1}, d.Dispatch(context.Background(), "c", []scanner.Match{match("a")}))
	}
}
