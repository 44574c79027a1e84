// Package verify derives a directory item's display status and its sticky
// verification state from one run's probe signals.
//
// Display status has no memory. Verification status is hysteretic: it is
// granted only by a strong success at high confidence and revoked only after
// RevokeStreak consecutive runs in which both probes failed at the transport level.
package verify

import (
	"time"

	"github.com/tomatolover555/windrose-ai/internal/types"
)

const (
	VerifiedConfidence = 80
	LikelyConfidence   = 50
	DeadStreak         = 3
	RevokeStreak       = 5
)

// Signals are this run's probe outcomes.
type Signals struct {
	WellKnownOK         bool
	ModelContextHit     bool
	OtherHit            bool
	BothFailedTransport bool
}

func (s Signals) Strong() bool { return s.WellKnownOK || s.ModelContextHit }

func (s Signals) Any() bool { return s.Strong() || s.OtherHit }

// State is the part of a DirectoryItem owned by the state machine.
type State struct {
	Status              types.Status
	VerificationStatus  types.VerificationStatus
	VerificationMethod  *types.VerificationMethod
	FailStreak          int
	LastVerifiedSuccess *time.Time
	LastSeen            *time.Time
}

// StateOf extracts the state machine fields of an item.
func StateOf(item types.DirectoryItem) State {
	return State{
		Status:              item.Status,
		VerificationStatus:  item.VerificationStatus,
		VerificationMethod:  item.VerificationMethod,
		FailStreak:          item.FailStreak,
		LastVerifiedSuccess: item.LastVerifiedSuccess,
		LastSeen:            item.LastSeen,
	}
}

// Apply writes s into item.
func (s State) Apply(item *types.DirectoryItem) {
	item.Status = s.Status
	item.VerificationStatus = s.VerificationStatus
	item.VerificationMethod = s.VerificationMethod
	item.FailStreak = s.FailStreak
	item.LastVerifiedSuccess = s.LastVerifiedSuccess
	item.LastSeen = s.LastSeen
}

// Transition computes the next state. created is used as last_seen when the
// domain has never produced a success signal.
func Transition(prev State, sig Signals, confidence int, now, created time.Time) State {
	next := State{}

	next.FailStreak = nextFailStreak(prev.FailStreak, sig)
	next.Status = displayStatus(confidence, sig, next.FailStreak)
	next.VerificationStatus = verificationStatus(prev.VerificationStatus, sig, confidence, next.FailStreak)
	next.VerificationMethod = verificationMethod(prev.VerificationMethod, sig)

	next.LastVerifiedSuccess = prev.LastVerifiedSuccess
	if sig.Strong() {
		next.LastVerifiedSuccess = timePtr(now)
	}

	switch {
	case sig.Any():
		next.LastSeen = timePtr(now)
	case prev.LastSeen != nil:
		next.LastSeen = prev.LastSeen
	default:
		next.LastSeen = timePtr(created)
	}

	return next
}

// A run that reached the site but found nothing is not a failure.
func nextFailStreak(prev int, sig Signals) int {
	switch {
	case sig.Strong():
		return 0
	case sig.BothFailedTransport:
		return prev + 1
	default:
		return prev
	}
}

func displayStatus(confidence int, sig Signals, failStreak int) types.Status {
	switch {
	case failStreak >= DeadStreak:
		return types.StatusDead
	case confidence >= VerifiedConfidence && sig.Strong():
		return types.StatusVerified
	case confidence >= LikelyConfidence:
		return types.StatusLikely
	default:
		return types.StatusUnverified
	}
}

func verificationStatus(prev types.VerificationStatus, sig Signals, confidence, failStreak int) types.VerificationStatus {
	switch {
	case sig.Strong() && confidence >= VerifiedConfidence:
		return types.VerificationVerified
	case prev == types.VerificationVerified && failStreak >= RevokeStreak && !sig.Strong():
		return types.VerificationRevoked
	case prev == "":
		return types.VerificationUnverified
	default:
		return prev
	}
}

func verificationMethod(prev *types.VerificationMethod, sig Signals) *types.VerificationMethod {
	switch {
	case sig.WellKnownOK:
		m := types.MethodWellKnown
		return &m
	case sig.ModelContextHit:
		m := types.MethodModelContext
		return &m
	default:
		return prev
	}
}

func timePtr(t time.Time) *time.Time { return &t }
