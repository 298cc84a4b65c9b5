package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an account address in EIP-55 checksum form.
type Identity string

// ParseIdentity validates a hex account address and normalizes it to its
// checksummed form, so "0xabc.." and "0xABC.." name the same account.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q is not an account address", ErrInvalidIdentity, s)
	}
	return Identity(common.HexToAddress(s).Hex()), nil
}

func (i Identity) String() string {
	return string(i)
}

func (i Identity) IsZero() bool {
	return i == ""
}
