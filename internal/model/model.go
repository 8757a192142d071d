// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package model defines the data-model entities shared across every
// pipeline component: Source, FetchAttempt, Snapshot, Document, Anchor,
// EvidenceFeatures, EntityMention, Event, EventDoc, EventScore,
// EventStateHistory, EventAlertState, MergeAudit and FeedbackEvent.
package model

import "time"

// SourceTier ranks a source's institutional trust level; lower is higher
// priority for scheduling and throttling purposes.
type SourceTier int

const (
	TierWire        SourceTier = 1 // press agencies, official newsrooms
	TierEstablished SourceTier = 2 // established mastheads
	TierRegional    SourceTier = 3 // regional/local outlets
	TierUnverified  SourceTier = 4 // social, aggregators, user-submitted
)

// FetchStrategy selects which fetch pool services a source.
type FetchStrategy string

const (
	StrategyFast        FetchStrategy = "FAST"
	StrategySPAHeadless FetchStrategy = "SPA_HEADLESS"
	StrategyDeep        FetchStrategy = "DEEP"
)

// ContentStrategy names the shape of a source's payload, which determines
// which Extractor path turns a Snapshot into a Document. This is orthogonal
// to FetchStrategy: RSS and HTML both run through the FAST pool, SPA_API and
// SPA_HEADLESS both run through the render pool, PDF runs through the deep
// pool.
type ContentStrategy string

const (
	ContentRSS         ContentStrategy = "RSS"
	ContentHTML        ContentStrategy = "HTML"
	ContentAPI         ContentStrategy = "API"
	ContentSPAAPI      ContentStrategy = "SPA_API"
	ContentSPAHeadless ContentStrategy = "SPA_HEADLESS"
	ContentPDF         ContentStrategy = "PDF"
)

// Source is a registered news origin, loaded from a TOML profile.
type Source struct {
	ID            string
	Name          string
	Tier          SourceTier
	HomepageURL   string
	PollInterval  time.Duration
	FetchStrategy FetchStrategy
	Strategy      ContentStrategy
	TrustWeight   float64
	Enabled       bool
	ProfileHash   string
	UpdatedAt     time.Time

	// RateLimitReqPerMin and ConcurrencyPerDomain override the process
	// defaults for this source's domain. Zero means "use the default".
	RateLimitReqPerMin  int
	ConcurrencyPerDomain int
}

// FetchOutcome classifies how a fetch attempt concluded.
type FetchOutcome string

const (
	OutcomeOK             FetchOutcome = "ok"
	OutcomeNotModified     FetchOutcome = "not_modified"
	OutcomeTransportError  FetchOutcome = "transport_error"
	OutcomeHTTPError       FetchOutcome = "http_error"
	OutcomeContentError    FetchOutcome = "content_error"
	OutcomePolicyError     FetchOutcome = "policy_error"
)

// FetchAttempt records one dispatch of a source through a pool.
type FetchAttempt struct {
	ID            string
	SourceID      string
	Pool          string
	StartedAt     time.Time
	FinishedAt    time.Time
	Outcome       FetchOutcome
	HTTPStatus    int
	BytesFetched  int64
	ErrorDetail   string
}

// Snapshot is the raw body captured by a successful fetch attempt, stored
// on disk and indexed by content hash for change detection.
type Snapshot struct {
	ID             string
	SourceID       string
	FetchAttemptID string
	URL            string
	ContentHash    string
	RawBodyPath    string
	FetchedAt      time.Time
}

// ExtractStrategy names the content-extraction method used to produce a
// Document from a Snapshot.
type ExtractStrategy string

const (
	ExtractReadability ExtractStrategy = "readability"
	ExtractAMP         ExtractStrategy = "amp"
	ExtractJSONLD      ExtractStrategy = "json_ld"
	ExtractFallback    ExtractStrategy = "fallback_density"
)

// Document is one extracted, versioned rendering of a Snapshot's article
// content. A new version is created whenever the extracted body changes.
type Document struct {
	ID           string
	Version      int
	SourceID     string
	URL          string
	CanonicalURL string
	Title        string
	BodyText     string
	// ContentHash is hash(title ∥ link ∥ summary-or-content) for RSS entries,
	// or hash(clean text) for every other strategy. A new version is only
	// ever created when this differs from the latest stored version's hash.
	ContentHash string
	PublishedAt time.Time
	ExtractedAt time.Time
	Strategy    ExtractStrategy
	SimHash     uint64
	EventID     string
}

// AnchorType names the kind of deterministic fact an Anchor captures.
type AnchorType string

const (
	AnchorCNPJ     AnchorType = "CNPJ"      // Brazilian corporate tax id
	AnchorCPF      AnchorType = "CPF"       // Brazilian individual tax id
	AnchorCNJ      AnchorType = "CNJ"       // judicial process id (CNJ unified numbering)
	AnchorSEI      AnchorType = "SEI"       // administrative process id
	AnchorTCU      AnchorType = "TCU"       // audit-court act id
	AnchorPL       AnchorType = "PL"        // bill/legislative proposal id
	AnchorACT      AnchorType = "ACT"       // decree/ordinance/resolution, number-year
	AnchorMoney    AnchorType = "MONEY"     // monetary value, canonical numeric
	AnchorDate     AnchorType = "DATE"      // date or date-time, normalized to UTC
	AnchorGovLink  AnchorType = "GOV_LINK"  // .gov/.gov.br domain link
	AnchorPDFLink  AnchorType = "PDF_LINK"  // link to a PDF artefact
	AnchorGazette  AnchorType = "GAZETTE_LINK" // link to an official-gazette publication
)

// Anchor is a deterministically extracted fact used as hard-merge evidence
// between documents.
type Anchor struct {
	ID         string
	DocumentID string
	Type       AnchorType
	Value      string
	Normalized string
	Confidence float64
	SpanStart  int
	SpanEnd    int
}

// EvidenceFeatures are the deterministic, rule-based signals the scoring
// engine uses to compute SCORE_OCEANO_AZUL.
type EvidenceFeatures struct {
	DocumentID        string
	HasQuote          bool
	HasNamedOfficial  bool
	HasDocumentRef    bool
	HasOnSceneMarker  bool
	HedgeTermCount    int
	EvidenceScore     float64
}

// EntityMention is a named-entity occurrence extracted from a Document,
// used by the organizer's same-event probabilistic attach rule.
type EntityMention struct {
	ID         string
	DocumentID string
	EntityType string
	Surface    string
	Normalized string
}

// EventState is a node in the event lifecycle state machine.
type EventState string

const (
	StateNew            EventState = "NEW"
	StateHydrating      EventState = "HYDRATING"
	StatePartialEnrich  EventState = "PARTIAL_ENRICH"
	StateFailedEnrich   EventState = "FAILED_ENRICH"
	StateQuarantined    EventState = "QUARANTINE"
	StateHot            EventState = "HOT"
	StateMerged         EventState = "MERGED"
	StateIgnored        EventState = "IGNORED"
	StateExpired        EventState = "EXPIRED"
)

// Event is a cluster of Documents believed to describe the same real-world
// occurrence.
type Event struct {
	ID          string
	CanonicalID string // set to another event's ID once State == MERGED
	State       EventState
	// UnverifiedViral is a flag, not a state: set when velocity is extreme
	// and (high tier or high source diversity or minimal evidence). It
	// rides alongside whatever state the event is actually in.
	UnverifiedViral bool
	Headline        string
	PrimaryAnchor   string
	CreatedAt       time.Time
	LastUpdatedAt   time.Time
	QuarantinedAt   time.Time
}

// LinkageRule names which organizer rule attached a Document to an Event.
type LinkageRule string

const (
	LinkageHardAnchor LinkageRule = "hard_anchor"
	LinkageNearDup    LinkageRule = "near_dup"
	LinkageSameEvent  LinkageRule = "same_event"
	LinkageNewEvent   LinkageRule = "new_event"
)

// EventDoc is the many-to-many association between an Event and the
// Documents attached to it.
type EventDoc struct {
	EventID     string
	DocumentID  string
	LinkageRule LinkageRule
	AttachedAt  time.Time
}

// ScoreReason is one additive contribution to a dual score. Codes are never
// renamed or removed across releases, only added to.
type ScoreReason struct {
	Code         string
	Contribution float64
}

// EventScore holds the two dual scores computed by the scoring engine.
type EventScore struct {
	EventID          string
	ScorePlantao     float64 // velocity/urgency, exponential decay
	PlantaoReasons   []ScoreReason
	ScoreOceanoAzul  float64 // evidence-weighted confidence
	OceanoReasons    []ScoreReason
	ComputedAt       time.Time
}

// DocumentSignal is the subset of a Document's and its Source's fields the
// scoring engine needs to compute an Event's dual score.
type DocumentSignal struct {
	DocumentID    string
	SourceID      string
	SourceTier    SourceTier
	TrustWeight   float64
	ExtractedAt   time.Time
	EvidenceScore float64
	HasDocumentRef bool
}

// EventStateHistory records one state machine transition.
type EventStateHistory struct {
	ID         string
	EventID    string
	FromState  EventState
	ToState    EventState
	Reason     string
	OccurredAt time.Time
}

// EventAlertState tracks cooldown and de-duplication state for the alert
// dispatcher.
type EventAlertState struct {
	EventID         string
	LastAlertedAt   time.Time
	LastFingerprint string
	CooldownUntil   time.Time
}

// MergeReason names why a canonicalisation merge happened.
type MergeReason string

const (
	MergeSharedAnchorPair MergeReason = "shared_anchor_pair"
	MergeManualEditorial  MergeReason = "manual_editorial"
)

// MergeAudit records one deferred-canonicalisation merge, absorbing one
// event's documents into another.
type MergeAudit struct {
	ID               string
	AbsorbedEventID  string
	CanonicalEventID string
	Reason           MergeReason
	MergedAt         time.Time
}

// FeedbackAction names an editorial feedback action received through the
// Feedback Sink.
type FeedbackAction string

const (
	FeedbackIgnore FeedbackAction = "ignore"
	FeedbackSnooze FeedbackAction = "snooze"
	FeedbackMerge  FeedbackAction = "merge"
	FeedbackSplit  FeedbackAction = "split"
)

// FeedbackEvent is one piece of human editorial feedback about an Event.
type FeedbackEvent struct {
	ID         string
	EventID    string
	Action     FeedbackAction
	Actor      string
	Note       string
	ReceivedAt time.Time
}

// DataStarvationIncident flags a source whose useful yield (anchors plus
// documents carrying non-zero evidence) has collapsed to near zero relative
// to its own calendar baseline, while HTTP 200s keep arriving.
type DataStarvationIncident struct {
	SourceID      string
	ObservedYield float64
	ExpectedYield float64
	Window        time.Duration
	DetectedAt    time.Time
}
