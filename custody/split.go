package custody

import (
	"fmt"

	"github.com/holiman/uint256"
)

var hundred = uint256.NewInt(100)

// Split is how a claim amount is divided. Total may be less than the claimed
// amount; the rounding remainder stays in the pool.
type Split struct {
	Owner        uint64
	Host         uint64
	Manufacturer uint64
}

// Total returns the sum paid out.
func (s Split) Total() uint64 {
	return s.Owner + s.Host + s.Manufacturer
}

// percentOf returns floor(amount * pct / 100) without intermediate overflow.
func percentOf(amount uint64, pct uint8) uint64 {
	v := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(pct)))
	return v.Div(v, hundred).Uint64()
}

// ComputeSplit takes the manufacturer cut first, then divides the remainder
// between host and owner by hostShare.
//
//	m = amount*ms/100, r = amount-m, h = r*hs/100, o = r*(100-hs)/100
func ComputeSplit(amount uint64, hostShare, manufacturerShare uint8) (Split, error) {
	if hostShare > 100 || manufacturerShare > 100 {
		return Split{}, fmt.Errorf("%w: host %d, manufacturer %d", ErrInvalidShare, hostShare, manufacturerShare)
	}
	m := percentOf(amount, manufacturerShare)
	rest := amount - m
	return Split{
		Manufacturer: m,
		Host:         percentOf(rest, hostShare),
		Owner:        percentOf(rest, 100-hostShare),
	}, nil
}

// ComputeExplicitSplit applies signer-supplied owner and host percentages to
// the whole amount. Their sum must not exceed 100.
func ComputeExplicitSplit(amount uint64, ownerShare, hostShare uint8) (Split, error) {
	if uint16(ownerShare)+uint16(hostShare) > 100 {
		return Split{}, fmt.Errorf("%w: owner %d + host %d", ErrInvalidShare, ownerShare, hostShare)
	}
	return Split{
		Owner: percentOf(amount, ownerShare),
		Host:  percentOf(amount, hostShare),
	}, nil
}
