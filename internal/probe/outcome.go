package probe

import "time"

// Kind names one of the two probes run per domain.
type Kind string

const (
	KindWellKnown Kind = "well_known"
	KindHomepage  Kind = "homepage"
)

type Result string

const (
	ResultSuccess    Result = "success"
	ResultNonSuccess Result = "non_success"
)

// Reason explains an Outcome. Everything other than ReasonOK is a non-success.
type Reason string

const (
	ReasonOK        Reason = "ok"
	ReasonTransport Reason = "transport"
	ReasonTimeout   Reason = "timeout"
	ReasonBlocked   Reason = "blocked"
	ReasonStatus    Reason = "status"
	ReasonParse     Reason = "parse"
	ReasonNoHint    Reason = "no_hint"
	ReasonDisabled  Reason = "disabled"
	ReasonCancelled Reason = "cancelled" // the run was stopped, nothing was learned
)

// Outcome is the tagged result of a single probe request.
type Outcome struct {
	Kind       Kind
	Result     Result
	Reason     Reason
	URL        string
	StatusCode int
	Hints      []string // matched homepage hints, in match order
	Strong     bool     // the strong homepage hint matched
	Error      string
	Duration   time.Duration
}

func (o Outcome) OK() bool { return o.Result == ResultSuccess }

// Responded reports whether a 2xx response was received, regardless of
// whether its body carried any evidence.
func (o Outcome) Responded() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

func (o Outcome) Disabled() bool { return o.Reason == ReasonDisabled }

func (o Outcome) Cancelled() bool { return o.Reason == ReasonCancelled }

func success(kind Kind, url string, status int) Outcome {
	return Outcome{Kind: kind, Result: ResultSuccess, Reason: ReasonOK, URL: url, StatusCode: status}
}

func failure(kind Kind, url string, reason Reason, status int, errMsg string) Outcome {
	return Outcome{Kind: kind, Result: ResultNonSuccess, Reason: reason, URL: url, StatusCode: status, Error: errMsg}
}

// Observation is everything one run learned about one domain.
type Observation struct {
	Domain    string
	WellKnown Outcome
	Homepage  Outcome
}

func (o Observation) WellKnownOK() bool { return o.WellKnown.OK() }

func (o Observation) ModelContextHit() bool { return o.Homepage.OK() && o.Homepage.Strong }

// OtherHit is a weak homepage hint without the strong one.
func (o Observation) OtherHit() bool {
	return o.Homepage.OK() && !o.Homepage.Strong && len(o.Homepage.Hints) > 0
}

func (o Observation) StrongSuccess() bool { return o.WellKnownOK() || o.ModelContextHit() }

// Cancelled reports whether either probe was cut short by the run stopping.
func (o Observation) Cancelled() bool { return o.WellKnown.Cancelled() || o.Homepage.Cancelled() }

func (o Observation) AnySuccess() bool { return o.StrongSuccess() || o.OtherHit() }

// BothFailedTransport is true when no enabled probe got a 2xx response.
// With both probes disabled nothing was attempted, so it is false. A
// cancelled probe says nothing about the site and never counts.
func (o Observation) BothFailedTransport() bool {
	attempted := 0
	for _, out := range []Outcome{o.WellKnown, o.Homepage} {
		if out.Cancelled() {
			return false
		}
		if out.Disabled() {
			continue
		}
		attempted++
		if out.Responded() {
			return false
		}
	}
	return attempted > 0
}
