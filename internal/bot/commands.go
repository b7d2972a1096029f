package bot

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tokenscout/internal/filter"
	"tokenscout/internal/gateway/notifier"
	"tokenscout/internal/token"
)

type usageError string

func (e usageError) Error() string { return string(e) }

type command struct {
	name string
	args string
	help string
	raw  bool
	run  func(ctx context.Context, chatID int64, args []string) (string, error)
}

func (c command) usage() usageError {
	if c.args == "" {
		return usageError("Usage: /" + c.name)
	}
	return usageError("Usage: /" + c.name + " " + c.args)
}

func (b *Bot) commandList() []command {
	return []command{
		{name: "start", help: "Start the bot", run: func(context.Context, int64, []string) (string, error) {
			return msgWelcome, nil
		}},
		{name: "help", help: "Show this help message", run: func(context.Context, int64, []string) (string, error) {
			return b.helpText(), nil
		}},
		{name: "scan_new_listings", args: "[on/off]", help: "Set whether to scan only new listings", run: b.onOff("scan_new_listings_only", "Scan new listings only")},
		{name: "chain_selection", args: "[all/specific] [chain_name]", help: "Choose chains to scan", run: b.chainSelection},
		{name: "min_volume", args: "[time_period] [value]", help: "Set minimum volume", run: b.periodValue("min_volume", "Minimum volume", false)},
		{name: "min_liquidity", args: "[value]", help: "Set minimum liquidity", run: b.single("min_liquidity", "Minimum liquidity", "")},
		{name: "max_supply", args: "[value]", help: "Set maximum token supply (0 = unlimited)", run: b.single("max_supply", "Maximum supply", "")},
		{name: "min_market_cap", args: "[value]", help: "Set minimum market cap", run: b.single("min_market_cap", "Minimum market cap", "")},
		{name: "max_market_cap", args: "[value]", help: "Set maximum market cap (0 = unlimited)", run: b.single("max_market_cap", "Maximum market cap", "")},
		{name: "min_price_change", args: "[percentage] [time_period]", help: "Set minimum price change", run: b.periodValue("min_price_change", "Minimum price change", true)},
		{name: "min_volume_usd", args: "[value] [time_period]", help: "Set minimum USD volume", run: b.periodValue("min_volume_usd", "Minimum USD volume", true)},
		{name: "token_security", args: "[on/off]", help: "Enable/disable token security checks", run: b.onOff("token_security", "Token security check")},
		{name: "creator_threshold", args: "[percentage]", help: "Set creator ownership threshold", run: b.single("max_creator_ownership", "Creator ownership threshold", "%")},
		{name: "first_mint_date", args: "[YYYY-MM-DD]", help: "Set first mint date", run: b.firstMintDate},
		{name: "supply_traded_percentage", args: "[percentage]", help: "Set minimum supply traded", run: b.single("min_supply_traded", "Minimum supply traded percentage", "%")},
		{name: "subscribe", help: "Subscribe to real-time updates", run: b.subscribe},
		{name: "unsubscribe", help: "Unsubscribe from updates", run: b.unsubscribe},
		{name: "status", help: "Show current settings", raw: true, run: b.status},
	}
}

func (b *Bot) commandTable() map[string]command {
	list := b.commandList()
	out := make(map[string]command, len(list))
	for _, c := range list {
		c := c
		run := c.run
		// usage errors carry the command's own syntax
		c.run = func(ctx context.Context, chatID int64, args []string) (string, error) {
			s, err := run(ctx, chatID, args)
			if err == errUsage {
				return "", c.usage()
			}
			return s, err
		}
		out[c.name] = c
	}
	return out
}

func (b *Bot) helpText() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, c := range b.commandList() {
		sb.WriteString("/" + c.name)
		if c.args != "" {
			sb.WriteString(" " + c.args)
		}
		sb.WriteString(" - " + c.help + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// unlimitedAtZero marks the caps where 0 lifts the limit.
var unlimitedAtZero = map[string]bool{"max_market_cap": true, "max_supply": true}

// errUsage asks the wrapper to substitute the command's usage line.
const errUsage = usageError("")

func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "%"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, usageError(msgInvalidValue)
	}
	return v, nil
}

func (b *Bot) single(key, label, unit string) func(context.Context, int64, []string) (string, error) {
	return func(_ context.Context, _ int64, args []string) (string, error) {
		if len(args) != 1 {
			return "", errUsage
		}
		v, err := parseNumber(args[0])
		if err != nil {
			return "", err
		}
		if err := b.patch(map[string]any{key: v}); err != nil {
			return "", err
		}
		if v == 0 && unlimitedAtZero[key] {
			return label + " set to unlimited", nil
		}
		return fmt.Sprintf("%s set to %s%s", label, formatNumber(v), unit), nil
	}
}

// periodValue handles both argument orders: /min_volume takes the period first,
// /min_price_change and /min_volume_usd take the value first.
func (b *Bot) periodValue(key, label string, valueFirst bool) func(context.Context, int64, []string) (string, error) {
	return func(_ context.Context, _ int64, args []string) (string, error) {
		if len(args) != 2 {
			return "", errUsage
		}
		rawPeriod, rawValue := args[0], args[1]
		if valueFirst {
			rawPeriod, rawValue = args[1], args[0]
		}
		p, err := token.ParsePeriod(rawPeriod)
		if err != nil {
			return "", usageError(fmt.Sprintf("Invalid time period %q. Use one of: %s", rawPeriod, periodList()))
		}
		v, err := parseNumber(rawValue)
		if err != nil {
			return "", err
		}
		if err := b.patch(map[string]any{key: map[string]any{string(p): v}}); err != nil {
			return "", err
		}
		unit := ""
		if key == "min_price_change" {
			unit = "%"
		}
		return fmt.Sprintf("%s for %s set to %s%s", label, p, formatNumber(v), unit), nil
	}
}

func (b *Bot) onOff(key, label string) func(context.Context, int64, []string) (string, error) {
	return func(_ context.Context, _ int64, args []string) (string, error) {
		if len(args) != 1 {
			return "", errUsage
		}
		var on bool
		switch strings.ToLower(args[0]) {
		case "on":
			on = true
		case "off":
		default:
			return "", errUsage
		}
		if err := b.patch(map[string]any{key: on}); err != nil {
			return "", err
		}
		state := "Off"
		if on {
			state = "On"
		}
		return label + ": " + state, nil
	}
}

func (b *Bot) chainSelection(_ context.Context, _ int64, args []string) (string, error) {
	if len(args) < 1 {
		return "", errUsage
	}
	var chains []string
	switch strings.ToLower(args[0]) {
	case filter.AllChains:
		chains = []string{filter.AllChains}
	case "specific":
		if len(args) != 2 {
			return "", usageError("Please specify a chain name for specific selection.")
		}
		chains = []string{strings.ToLower(args[1])}
	default:
		return "", errUsage
	}
	if err := b.patch(map[string]any{"chains": chains}); err != nil {
		return "", err
	}
	return "Chain selection updated: " + strings.Join(chains, ", "), nil
}

func (b *Bot) firstMintDate(_ context.Context, _ int64, args []string) (string, error) {
	if len(args) != 1 {
		return "", errUsage
	}
	if _, err := filter.ParseMintDate(args[0]); err != nil {
		return "", usageError("Invalid date format. Please use YYYY-MM-DD.")
	}
	if err := b.patch(map[string]any{"first_mint_date": args[0]}); err != nil {
		return "", err
	}
	return "First mint date set to " + args[0], nil
}

func (b *Bot) subscribe(ctx context.Context, chatID int64, _ []string) (string, error) {
	if b.subs == nil {
		return "Subscriptions are not available.", nil
	}
	if err := b.subs.Add(ctx, chatID); err != nil {
		return "", err
	}
	return "You have subscribed to real-time updates.", nil
}

func (b *Bot) unsubscribe(ctx context.Context, chatID int64, _ []string) (string, error) {
	if b.subs == nil {
		return "Subscriptions are not available.", nil
	}
	if err := b.subs.Remove(ctx, chatID); err != nil {
		return "", err
	}
	return "You have unsubscribed from real-time updates.", nil
}

type statusView struct {
	Chains              []string           `yaml:"chains"`
	ScanNewListingsOnly bool               `yaml:"scan_new_listings_only"`
	MinVolume           map[string]float64 `yaml:"min_volume"`
	MinVolumeUSD        map[string]float64 `yaml:"min_volume_usd"`
	MinPriceChange      map[string]float64 `yaml:"min_price_change"`
	MinLiquidity        float64            `yaml:"min_liquidity"`
	MinMarketCap        float64            `yaml:"min_market_cap"`
	MaxMarketCap        string             `yaml:"max_market_cap"`
	MaxSupply           string             `yaml:"max_supply"`
	MaxCreatorOwnership float64            `yaml:"max_creator_ownership"`
	MinSupplyTraded     float64            `yaml:"min_supply_traded"`
	TokenSecurity       bool               `yaml:"token_security"`
	FirstMintDate       string             `yaml:"first_mint_date"`
}

func newStatusView(c filter.Criteria) statusView {
	v := statusView{
		Chains:              c.Chains,
		ScanNewListingsOnly: c.ScanNewListingsOnly,
		MinVolume:           periodMap(c.MinVolume),
		MinVolumeUSD:        periodMap(c.MinVolumeUSD),
		MinPriceChange:      periodMap(c.MinPriceChange),
		MinLiquidity:        c.MinLiquidity,
		MinMarketCap:        c.MinMarketCap,
		MaxMarketCap:        formatNumber(c.MaxMarketCap),
		MaxSupply:           formatNumber(c.MaxSupply),
		MaxCreatorOwnership: c.MaxCreatorOwnership,
		MinSupplyTraded:     c.MinSupplyTraded,
		TokenSecurity:       c.TokenSecurity,
		FirstMintDate:       c.FirstMintDate.UTC().Format("2006-01-02"),
	}
	if c.MaxMarketCap >= math.MaxFloat64 {
		v.MaxMarketCap = "unlimited"
	}
	if c.MaxSupply <= 0 {
		v.MaxSupply = "unlimited"
	}
	return v
}

func (b *Bot) status(ctx context.Context, chatID int64, _ []string) (string, error) {
	raw, err := yaml.Marshal(newStatusView(b.criteria.Snapshot()))
	if err != nil {
		return "", err
	}
	sub, err := b.subscribed(ctx, chatID)
	if err != nil {
		return "", err
	}
	yes := "No"
	if sub {
		yes = "Yes"
	}
	return "Current settings:\n" + notifier.CodeBlock(string(raw)) + "\nSubscribed to updates: " + yes, nil
}

func periodMap(src map[token.Period]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for p, v := range src {
		out[string(p)] = v
	}
	return out
}

func periodList() string {
	names := make([]string, 0, len(token.Periods))
	for _, p := range token.Periods {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
