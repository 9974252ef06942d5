package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidateAddress checks that address is well-formed for c. It does not check
// that the account exists.
func ValidateAddress(c Chain, address string) error {
	var ok bool
	switch {
	case c.IsEVM():
		ok = common.IsHexAddress(address)
	case c == Solana:
		ok = isSolanaAddress(address)
	case c == Sui:
		ok = isSuiAddress(address)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedChain, c)
	}

	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrInvalidAddress, address, c)
	}
	return nil
}

// Solana public keys are 32 bytes, which base58-encode to 32..44 characters.
func isSolanaAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	for _, r := range address {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

// Sui addresses are 32 bytes, 0x-prefixed hex.
func isSuiAddress(address string) bool {
	raw, err := hexutil.Decode(address)
	return err == nil && len(raw) == 32
}
