// Package address validates token addresses per chain family.
package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Family groups chains that share an address format.
type Family int

const (
	FamilyUnknown Family = iota
	FamilySolana
	FamilyEVM
)

var evmChains = map[string]struct{}{
	"ethereum":  {},
	"arbitrum":  {},
	"avalanche": {},
	"bsc":       {},
	"optimism":  {},
	"polygon":   {},
	"base":      {},
	"zksync":    {},
}

// FamilyOf maps a provider chain name onto its address family.
func FamilyOf(chain string) Family {
	chain = strings.ToLower(strings.TrimSpace(chain))
	if chain == "solana" {
		return FamilySolana
	}
	if _, ok := evmChains[chain]; ok {
		return FamilyEVM
	}
	return FamilyUnknown
}

// Validate checks addr against the format of chain. Chains of unknown family only
// require a non-empty address without whitespace.
func Validate(chain, addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	if strings.ContainsAny(addr, " \t\r\n") {
		return fmt.Errorf("address %q contains whitespace", addr)
	}
	switch FamilyOf(chain) {
	case FamilySolana:
		raw, err := base58.Decode(addr)
		if err != nil {
			return fmt.Errorf("solana address %q: %w", addr, err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("solana address %q decodes to %d bytes, want 32", addr, len(raw))
		}
	case FamilyEVM:
		if len(addr) != 42 || !strings.HasPrefix(strings.ToLower(addr), "0x") {
			return fmt.Errorf("evm address %q must be 0x followed by 40 hex digits", addr)
		}
		if _, err := hex.DecodeString(addr[2:]); err != nil {
			return fmt.Errorf("evm address %q: %w", addr, err)
		}
	}
	return nil
}

// Valid is Validate reduced to a bool.
func Valid(chain, addr string) bool {
	return Validate(chain, addr) == nil
}

// Normalize lowercases EVM addresses, which are case-insensitive; base58 is left as is.
func Normalize(chain, addr string) string {
	addr = strings.TrimSpace(addr)
	if FamilyOf(chain) == FamilyEVM {
		return strings.ToLower(addr)
	}
	return addr
}
