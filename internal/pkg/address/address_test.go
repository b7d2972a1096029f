package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		chain string
		addr  string
		ok    bool
	}{
		{"solana", "So11111111111111111111111111111111111111112", true},
		{"solana", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"solana", "0OIl", false},
		{"solana", "abc", false},
		{"ethereum", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", true},
		{"base", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb4", false},
		{"bsc", "0xZZb86991c6218b36c1d19d4a2e9eb0ce3606eb48", false},
		{"ethereum", "So11111111111111111111111111111111111111112", false},
		{"sui", "0x2::sui::SUI", true},
		{"sui", "", false},
		{"sui", "a b", false},
	}
	for _, tc := range cases {
		err := Validate(tc.chain, tc.addr)
		if tc.ok {
			assert.NoError(t, err, "%s %s", tc.chain, tc.addr)
		} else {
			assert.Error(t, err, "%s %s", tc.chain, tc.addr)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "0xabcdef", Normalize("Ethereum", " 0xABCdef "))
	assert.Equal(t, "So1Abc", Normalize("solana", "So1Abc"))
	assert.Equal(t, FamilyUnknown, FamilyOf("tron"))
}
