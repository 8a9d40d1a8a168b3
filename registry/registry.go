package registry

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Clock supplies the registry's notion of now. Stores default to
// time.Now and tests swap in a fixed clock.
type Clock func() time.Time

// AddrKey is the canonical storage form of an address.
func AddrKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ParseAddr parses a 0x-prefixed hex address, case insensitive.
func ParseAddr(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
