package types

import "time"

// ItemType is a protocol surface a domain was seen supporting.
type ItemType string

const (
	TypeWebMCP    ItemType = "webmcp"
	TypeMCPServer ItemType = "mcp-server"
)

// Status is the display status derived fresh on every run.
type Status string

const (
	StatusVerified   Status = "verified"
	StatusLikely     Status = "likely"
	StatusUnverified Status = "unverified"
	StatusDead       Status = "dead"
)

// Rank orders statuses for directory listings, most trusted first.
func (s Status) Rank() int {
	switch s {
	case StatusVerified:
		return 0
	case StatusLikely:
		return 1
	case StatusUnverified:
		return 2
	case StatusDead:
		return 3
	default:
		return 4
	}
}

// VerificationStatus is the sticky, persisted trust state.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRevoked    VerificationStatus = "revoked"
)

// VerificationMethod is the last mechanism that ever produced a strong success.
type VerificationMethod string

const (
	MethodWellKnown    VerificationMethod = "well_known"
	MethodModelContext VerificationMethod = "modelContext_detected"
)

type EvidenceKind string

const (
	EvidenceGitHubHit     EvidenceKind = "github_hit"
	EvidenceWellKnownJSON EvidenceKind = "well_known_mcp_json"
	EvidenceHeuristicHTML EvidenceKind = "heuristic_html"
)

// Evidence is an immutable observation. Unique by (kind, detail, url).
type Evidence struct {
	Kind   EvidenceKind `json:"kind"`
	Detail string       `json:"detail"`
	URL    string       `json:"url,omitempty"`
}

type ProofType string

const (
	ProofWellKnown ProofType = "well_known"
	ProofHomepage  ProofType = "homepage"
)

// Proof records the last time a proof mechanism was observed working.
// Unique by (type, url).
type Proof struct {
	Type        ProofType `json:"type"`
	URL         string    `json:"url"`
	LastSuccess time.Time `json:"last_success"`
}

// DirectoryItem is one domain in the directory, keyed by its normalized hostname.
type DirectoryItem struct {
	Domain              string              `json:"domain"`
	Type                []ItemType          `json:"type"`
	Confidence          int                 `json:"confidence"`
	Status              Status              `json:"status"`
	VerificationStatus  VerificationStatus  `json:"verification_status"`
	VerificationMethod  *VerificationMethod `json:"verification_method"`
	Proof               []Proof             `json:"proof"`
	LastVerifiedSuccess *time.Time          `json:"last_verified_success"`
	LastSeen            *time.Time          `json:"last_seen"`
	FirstSeen           *time.Time          `json:"first_seen,omitempty"`
	FailStreak          int                 `json:"fail_streak"`
	Evidence            []Evidence          `json:"evidence"`
	LastChecked         *time.Time          `json:"last_checked"`
}

// Snapshot is the persisted directory document.
type Snapshot struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Items     []DirectoryItem `json:"items"`
}

// NewItem creates the record for a domain on its first sighting.
func NewItem(domain string, now time.Time) DirectoryItem {
	first := now
	return DirectoryItem{
		Domain:             domain,
		Type:               []ItemType{},
		Status:             StatusUnverified,
		VerificationStatus: VerificationUnverified,
		Proof:              []Proof{},
		Evidence:           []Evidence{},
		FirstSeen:          &first,
	}
}

// EmptySnapshot returns a snapshot with no items.
func EmptySnapshot(now time.Time) *Snapshot {
	return &Snapshot{UpdatedAt: now, Items: []DirectoryItem{}}
}

// Find returns the item for domain, if present.
func (s *Snapshot) Find(domain string) (DirectoryItem, bool) {
	for _, item := range s.Items {
		if item.Domain == domain {
			return item, true
		}
	}
	return DirectoryItem{}, false
}
