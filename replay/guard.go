// Package replay keeps per-claimant records and decides whether a new claim
// is a replay or falls inside the rate-limit window.
package replay

import (
	"fmt"
	"math"
	"time"
)

// SecondsPerDay sizes calendar-day buckets.
const SecondsPerDay = 86400

// Record is the persisted claim history of one claimant.
type Record struct {
	LastNonce    uint64
	LastClaimAt  int64
	TotalClaimed uint64
	Count        uint64
}

// IsFresh reports whether no claim has been consumed yet.
func (r Record) IsFresh() bool {
	return r.Count == 0
}

// Policy selects which checks a Guard applies.
type Policy uint8

const (
	PolicyBoth Policy = iota
	PolicyNonce
	PolicyWindow
)

func (p Policy) String() string {
	switch p {
	case PolicyBoth:
		return "both"
	case PolicyNonce:
		return "nonce"
	case PolicyWindow:
		return "window"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy maps "nonce", "window" or "both" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "both":
		return PolicyBoth, nil
	case "nonce":
		return PolicyNonce, nil
	case "window":
		return PolicyWindow, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// WindowMode selects how the rate-limit window is measured.
type WindowMode uint8

const (
	// Rolling rejects claims less than Period after the last one.
	Rolling WindowMode = iota
	// Calendar rejects claims in the same UTC day bucket as the last one.
	Calendar
)

func (m WindowMode) String() string {
	switch m {
	case Rolling:
		return "rolling"
	case Calendar:
		return "calendar"
	default:
		return fmt.Sprintf("window(%d)", uint8(m))
	}
}

// ParseWindowMode maps "rolling" or "calendar" to a WindowMode.
func ParseWindowMode(s string) (WindowMode, error) {
	switch s {
	case "rolling":
		return Rolling, nil
	case "calendar":
		return Calendar, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownWindowMode, s)
	}
}

// Guard applies the replay and rate-limit policy to claim records.
type Guard struct {
	Policy Policy
	Window WindowMode
	Period time.Duration
}

// DefaultGuard checks nonces and a rolling 24 hour window.
func DefaultGuard() Guard {
	return Guard{Policy: PolicyBoth, Window: Rolling, Period: 24 * time.Hour}
}

// Validate checks the guard configuration.
func (g Guard) Validate() error {
	if g.Policy > PolicyWindow {
		return fmt.Errorf("%w: %s", ErrUnknownPolicy, g.Policy)
	}
	if g.Window > Calendar {
		return fmt.Errorf("%w: %s", ErrUnknownWindowMode, g.Window)
	}
	if g.Window == Rolling && g.Period < time.Second {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, g.Period)
	}
	return nil
}

// NonceAdvances reports whether nonce may follow last. Nonces start at 1 and
// after math.MaxUint64 the sequence restarts at 1.
func NonceAdvances(last, nonce uint64) bool {
	return nonce > last || (last == math.MaxUint64 && nonce == 1)
}

// Check returns an error if a claim with nonce at now must be rejected.
// The nonce check runs before the window check.
func (g Guard) Check(rec Record, nonce uint64, now int64) error {
	if g.Policy != PolicyWindow && !NonceAdvances(rec.LastNonce, nonce) {
		return fmt.Errorf("%w: nonce %d, last %d", ErrNonceAlreadyClaimed, nonce, rec.LastNonce)
	}
	if g.Policy != PolicyNonce && !rec.IsFresh() && !g.windowOpen(rec.LastClaimAt, now) {
		return fmt.Errorf("%w: last claim at %d, now %d", ErrClaimAlreadyMadeToday, rec.LastClaimAt, now)
	}
	return nil
}

func (g Guard) windowOpen(last, now int64) bool {
	if g.Window == Calendar {
		return now/SecondsPerDay > last/SecondsPerDay
	}
	return now-last >= int64(g.Period/time.Second)
}

// Consume records an accepted claim of amount. It does not re-run Check.
func (g Guard) Consume(rec *Record, nonce uint64, now int64, amount uint64) error {
	if rec.TotalClaimed > math.MaxUint64-amount {
		return ErrTotalOverflow
	}
	rec.LastNonce = nonce
	rec.LastClaimAt = now
	rec.TotalClaimed += amount
	if rec.Count < math.MaxUint64 {
		rec.Count++
	}
	return nil
}

// CheckAndConsume runs Check and, if it passes, Consume.
func (g Guard) CheckAndConsume(rec *Record, nonce uint64, now int64, amount uint64) error {
	if err := g.Check(*rec, nonce, now); err != nil {
		return err
	}
	return g.Consume(rec, nonce, now, amount)
}
