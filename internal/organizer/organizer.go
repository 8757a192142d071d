// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package organizer clusters Documents into Events. Three linkage rules run
// in order for every new Document — hard merge by shared anchor, near-dup by
// SimHash, same-event by title/lede similarity plus entity overlap — and a
// background job later folds clusters of Events that turn out to share a
// strong anchor pair into one canonical Event.
package organizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/broadcast"
	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/model"
)

// Store is the subset of internal/store.Store the organizer depends on.
type Store interface {
	EventsForAnchor(ctx context.Context, anchorType model.AnchorType, normalized string, since time.Time) ([]string, error)
	RecentDocumentsSince(ctx context.Context, since time.Time) ([]model.Document, error)
	EntityMentionsForDocument(ctx context.Context, documentID string) ([]model.EntityMention, error)
	AnchorCountForEvent(ctx context.Context, eventID string) (int, error)
	StrongAnchorPairGroups(ctx context.Context, strongTypes []model.AnchorType) (map[string][]string, error)
	CreateEvent(ctx context.Context, e model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	AttachDocumentToEvent(ctx context.Context, documentID string, version int, eventID string, rule model.LinkageRule) error
	UpdateDocumentSimHash(ctx context.Context, documentID string, version int, simhash uint64) error
	MergeEvent(ctx context.Context, absorbedID, canonicalID string, reason model.MergeReason, at time.Time) error
}

// Broadcaster is told about every canonicalisation fold so connected
// clients can retire the absorbed Event without polling.
type Broadcaster interface {
	PublishEventMerged(data broadcast.EventMergedData)
}

// Config tunes the organizer's linkage thresholds.
type Config struct {
	HardMergeWindow      time.Duration // how far back a shared anchor still counts
	NearDupWindow        time.Duration
	NearDupMaxDistance   int // max Hamming distance between SimHash fingerprints to count as a near-dup
	SameEventWindow      time.Duration
	SameEventThreshold   float64 // combined text+entity score required to attach
	TextWeight           float64
	EntityWeight         float64
	CanonicalizeInterval time.Duration // how often Serve runs the deferred-merge sweep
}

// DefaultConfig returns the organizer's out-of-the-box tuning.
func DefaultConfig() Config {
	return Config{
		HardMergeWindow:      6 * time.Hour,
		NearDupWindow:        2 * time.Hour,
		NearDupMaxDistance:   3,
		SameEventWindow:      45 * time.Minute,
		SameEventThreshold:   0.55,
		TextWeight:           0.6,
		EntityWeight:         0.4,
		CanonicalizeInterval: time.Minute,
	}
}

// strongAnchorTypes mirrors internal/anchor's strong-evidence categories:
// the ones that can stand alone as the identifying pair for canonicalisation.
var strongAnchorTypes = []model.AnchorType{
	model.AnchorCNJ, model.AnchorSEI, model.AnchorTCU, model.AnchorPL, model.AnchorACT, model.AnchorCNPJ,
}

// Engine runs the three linkage rules and the deferred canonicalisation
// sweep.
type Engine struct {
	store       Store
	cfg         Config
	broadcaster Broadcaster
	now         func() time.Time
}

// New builds an Engine with the given configuration. broadcaster may be
// nil, in which case canonicalisation merges are persisted but not
// announced to connected clients.
func New(store Store, cfg Config, broadcaster Broadcaster) *Engine {
	return &Engine{store: store, cfg: cfg, broadcaster: broadcaster, now: time.Now}
}

func (e *Engine) String() string { return "organizer-canonicalize-sweeper" }

// Serve runs the deferred-merge sweep on a ticker until ctx is canceled,
// folding clusters of Events that share a strong anchor pair into their
// canonical Event.
func (e *Engine) Serve(ctx context.Context) error {
	interval := e.cfg.CanonicalizeInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if merged, err := e.Canonicalize(ctx); err != nil {
				logging.Warn().Err(err).Msg("organizer: canonicalize sweep failed")
			} else if merged > 0 {
				logging.Info().Int("merged", merged).Msg("organizer: canonicalize sweep folded events")
			}
		}
	}
}

// Attach runs the three linkage rules in order against a new Document and
// its extracted anchors, attaching it to an existing Event or creating a new
// one. It returns the rule that fired and the Event it attached to.
func (e *Engine) Attach(ctx context.Context, doc model.Document, anchors []model.Anchor) (model.LinkageRule, string, error) {
	now := e.now()

	if eventID, err := e.hardMerge(ctx, anchors, now); err != nil {
		return "", "", err
	} else if eventID != "" {
		if err := e.store.AttachDocumentToEvent(ctx, doc.ID, doc.Version, eventID, model.LinkageHardAnchor); err != nil {
			return "", "", err
		}
		return model.LinkageHardAnchor, eventID, nil
	}

	simhash := ComputeSimHash(doc.BodyText)
	if err := e.store.UpdateDocumentSimHash(ctx, doc.ID, doc.Version, simhash); err != nil {
		return "", "", err
	}

	candidates, err := e.store.RecentDocumentsSince(ctx, now.Add(-maxDuration(e.cfg.NearDupWindow, e.cfg.SameEventWindow)))
	if err != nil {
		return "", "", err
	}

	if eventID := e.nearDuplicate(simhash, candidates, now); eventID != "" {
		if err := e.store.AttachDocumentToEvent(ctx, doc.ID, doc.Version, eventID, model.LinkageNearDup); err != nil {
			return "", "", err
		}
		return model.LinkageNearDup, eventID, nil
	}

	eventID, err := e.sameEvent(ctx, doc, candidates, now)
	if err != nil {
		return "", "", err
	}
	if eventID != "" {
		if err := e.store.AttachDocumentToEvent(ctx, doc.ID, doc.Version, eventID, model.LinkageSameEvent); err != nil {
			return "", "", err
		}
		return model.LinkageSameEvent, eventID, nil
	}

	newEvent := model.Event{
		ID:            uuid.NewString(),
		State:         model.StateHydrating,
		Headline:      doc.Title,
		PrimaryAnchor: primaryAnchorOf(anchors),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := e.store.CreateEvent(ctx, newEvent); err != nil {
		return "", "", err
	}
	if err := e.store.AttachDocumentToEvent(ctx, doc.ID, doc.Version, newEvent.ID, model.LinkageNewEvent); err != nil {
		return "", "", err
	}
	return model.LinkageNewEvent, newEvent.ID, nil
}

func (e *Engine) hardMerge(ctx context.Context, anchors []model.Anchor, now time.Time) (string, error) {
	since := now.Add(-e.cfg.HardMergeWindow)
	for _, a := range anchors {
		eventIDs, err := e.store.EventsForAnchor(ctx, a.Type, a.Normalized, since)
		if err != nil {
			return "", fmt.Errorf("hard merge lookup for %s/%s: %w", a.Type, a.Normalized, err)
		}
		if len(eventIDs) > 0 {
			return eventIDs[0], nil
		}
	}
	return "", nil
}

func (e *Engine) nearDuplicate(simhash uint64, candidates []model.Document, now time.Time) string {
	cutoff := now.Add(-e.cfg.NearDupWindow)
	for _, c := range candidates {
		if c.EventID == "" || c.SimHash == 0 || c.ExtractedAt.Before(cutoff) {
			continue
		}
		if HammingDistance(simhash, c.SimHash) <= e.cfg.NearDupMaxDistance {
			return c.EventID
		}
	}
	return ""
}

func (e *Engine) sameEvent(ctx context.Context, doc model.Document, candidates []model.Document, now time.Time) (string, error) {
	cutoff := now.Add(-e.cfg.SameEventWindow)
	docEntities, err := e.store.EntityMentionsForDocument(ctx, doc.ID)
	if err != nil {
		return "", fmt.Errorf("entity mentions for %s: %w", doc.ID, err)
	}
	docLede := ledeText(doc)

	var best string
	var bestScore float64
	for _, c := range candidates {
		if c.EventID == "" || c.ID == doc.ID || c.ExtractedAt.Before(cutoff) {
			continue
		}
		candidateEntities, err := e.store.EntityMentionsForDocument(ctx, c.ID)
		if err != nil {
			return "", fmt.Errorf("entity mentions for %s: %w", c.ID, err)
		}
		score := e.cfg.TextWeight*titleLedeSimilarity(docLede, ledeText(c)) + e.cfg.EntityWeight*entityOverlap(docEntities, candidateEntities)
		if score > bestScore {
			bestScore = score
			best = c.EventID
		}
	}
	if bestScore >= e.cfg.SameEventThreshold {
		return best, nil
	}
	return "", nil
}

func ledeText(d model.Document) string {
	body := d.BodyText
	const ledeRunes = 400
	runes := []rune(body)
	if len(runes) > ledeRunes {
		body = string(runes[:ledeRunes])
	}
	return d.Title + " " + body
}

func primaryAnchorOf(anchors []model.Anchor) string {
	for _, a := range anchors {
		for _, strong := range strongAnchorTypes {
			if a.Type == strong {
				return string(a.Type) + ":" + a.Normalized
			}
		}
	}
	return ""
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
