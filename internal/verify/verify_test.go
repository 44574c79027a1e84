package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

var (
	created = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	manifestOK  = Signals{WellKnownOK: true}
	contextHit  = Signals{ModelContextHit: true}
	weakHit     = Signals{OtherHit: true}
	unreachable = Signals{BothFailedTransport: true}
	reachedNone = Signals{}
)

func verifiedState() State {
	m := types.MethodWellKnown
	last := created
	return State{
		Status:              types.StatusVerified,
		VerificationStatus:  types.VerificationVerified,
		VerificationMethod:  &m,
		LastVerifiedSuccess: &last,
		LastSeen:            &last,
	}
}

func TestFailStreak(t *testing.T) {
	tests := []struct {
		name string
		prev int
		sig  Signals
		want int
	}{
		{"strong resets", 4, manifestOK, 0},
		{"context hit resets", 2, contextHit, 0},
		{"weak hit holds", 2, weakHit, 2},
		{"reached without evidence holds", 2, reachedNone, 2},
		{"transport failure increments", 2, unreachable, 3},
		{"first failure", 0, unreachable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transition(State{FailStreak: tt.prev}, tt.sig, 0, now, created)
			assert.Equal(t, tt.want, got.FailStreak)
		})
	}
}

func TestDisplayStatus(t *testing.T) {
	tests := []struct {
		name       string
		prevStreak int
		sig        Signals
		confidence int
		want       types.Status
	}{
		{"verified", 0, manifestOK, 100, types.StatusVerified},
		{"high confidence without strong is likely", 0, weakHit, 95, types.StatusLikely},
		{"strong below threshold is likely", 0, manifestOK, 70, types.StatusLikely},
		{"likely floor", 0, reachedNone, 50, types.StatusLikely},
		{"unverified", 0, reachedNone, 49, types.StatusUnverified},
		{"dead at three", 2, unreachable, 100, types.StatusDead},
		{"dead persists while reachable without evidence", 3, reachedNone, 70, types.StatusDead},
		{"strong revives", 7, contextHit, 90, types.StatusVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transition(State{FailStreak: tt.prevStreak}, tt.sig, tt.confidence, now, created)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestVerificationStatusGrant(t *testing.T) {
	revoked := State{VerificationStatus: types.VerificationRevoked, FailStreak: 9}

	got := Transition(revoked, contextHit, 80, now, created)
	assert.Equal(t, types.VerificationVerified, got.VerificationStatus)
	assert.Equal(t, 0, got.FailStreak)

	got = Transition(State{}, manifestOK, 79, now, created)
	assert.Equal(t, types.VerificationUnverified, got.VerificationStatus, "confidence below 80 never grants")

	got = Transition(State{}, weakHit, 100, now, created)
	assert.Equal(t, types.VerificationUnverified, got.VerificationStatus, "weak hint never grants")
}

func TestVerificationStatusIsSticky(t *testing.T) {
	state := verifiedState()

	for run := 1; run <= 4; run++ {
		state = Transition(state, unreachable, 70, now, created)
		assert.Equal(t, types.VerificationVerified, state.VerificationStatus, "run %d", run)
	}

	state = Transition(state, unreachable, 70, now, created)
	assert.Equal(t, 5, state.FailStreak)
	assert.Equal(t, types.VerificationRevoked, state.VerificationStatus)

	state = Transition(state, unreachable, 70, now, created)
	assert.Equal(t, types.VerificationRevoked, state.VerificationStatus)
}

func TestRevokeOnlyFromVerified(t *testing.T) {
	state := State{VerificationStatus: types.VerificationUnverified, FailStreak: 10}
	got := Transition(state, unreachable, 0, now, created)
	assert.Equal(t, types.VerificationUnverified, got.VerificationStatus)
}

func TestVerificationMethod(t *testing.T) {
	got := Transition(State{}, Signals{WellKnownOK: true, ModelContextHit: true}, 100, now, created)
	require.NotNil(t, got.VerificationMethod)
	assert.Equal(t, types.MethodWellKnown, *got.VerificationMethod)

	got = Transition(got, contextHit, 60, now, created)
	assert.Equal(t, types.MethodModelContext, *got.VerificationMethod)

	got = Transition(got, unreachable, 0, now, created)
	require.NotNil(t, got.VerificationMethod, "failure never clears the method")
	assert.Equal(t, types.MethodModelContext, *got.VerificationMethod)

	got = Transition(State{}, weakHit, 25, now, created)
	assert.Nil(t, got.VerificationMethod)
}

func TestTimestamps(t *testing.T) {
	got := Transition(State{}, reachedNone, 0, now, created)
	assert.Nil(t, got.LastVerifiedSuccess)
	require.NotNil(t, got.LastSeen)
	assert.Equal(t, created, *got.LastSeen, "never-seen defaults to creation time")

	got = Transition(got, weakHit, 25, now, created)
	assert.Nil(t, got.LastVerifiedSuccess)
	assert.Equal(t, now, *got.LastSeen)

	later := now.Add(time.Hour)
	got = Transition(got, manifestOK, 70, later, created)
	assert.Equal(t, later, *got.LastVerifiedSuccess)
	assert.Equal(t, later, *got.LastSeen)

	got = Transition(got, unreachable, 70, later.Add(time.Hour), created)
	assert.Equal(t, later, *got.LastVerifiedSuccess)
	assert.Equal(t, later, *got.LastSeen)
}

func TestStateRoundTrip(t *testing.T) {
	item := types.NewItem("a.com", created)
	state := Transition(StateOf(item), manifestOK, 100, now, created)
	state.Apply(&item)

	assert.Equal(t, types.StatusVerified, item.Status)
	assert.Equal(t, types.VerificationVerified, item.VerificationStatus)
	assert.Equal(t, state, StateOf(item))
}
