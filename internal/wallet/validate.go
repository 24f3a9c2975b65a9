package wallet

import (
	"math/big"
	"regexp"
	"strings"
)

var (
	reEthAddr = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func IsAddress(s string) bool {
	return reEthAddr.MatchString(strings.TrimSpace(s))
}

// ParseEthToWei parses an ETH amount string ("1.5", "0,5") into wei
// (floor), requires > 0.
func ParseEthToWei(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	amount = strings.ReplaceAll(amount, ",", ".")

	r, ok := new(big.Rat).SetString(amount)
	if !ok || r.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	r.Mul(r, new(big.Rat).SetInt(weiPerEth))

	out := new(big.Int)
	out.Div(r.Num(), r.Denom())
	if out.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	return out, nil
}
