// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package organizer

import (
	"context"
	"fmt"

	"github.com/tomfr/radar/internal/broadcast"
	"github.com/tomfr/radar/internal/model"
)

// Canonicalize runs the deferred-merge sweep once: it finds every cluster of
// non-merged Events that share a strong anchor pair, picks a canonical Event
// per cluster, and folds the rest into it. It returns the number of events
// merged away.
//
// The canonical Event in a cluster is the one with the earliest CreatedAt,
// breaking ties by the highest anchor count.
func (e *Engine) Canonicalize(ctx context.Context) (int, error) {
	groups, err := e.store.StrongAnchorPairGroups(ctx, strongAnchorTypes)
	if err != nil {
		return 0, fmt.Errorf("canonicalize: list anchor pair groups: %w", err)
	}

	now := e.now()
	merged := 0
	seen := make(map[string]bool)

	for reasonKey, eventIDs := range groups {
		var unmergedIDs []string
		for _, id := range eventIDs {
			if !seen[id] {
				unmergedIDs = append(unmergedIDs, id)
			}
		}
		if len(unmergedIDs) < 2 {
			continue
		}

		canonicalID, err := e.pickCanonical(ctx, unmergedIDs)
		if err != nil {
			return merged, fmt.Errorf("canonicalize group %s: %w", reasonKey, err)
		}

		for _, id := range unmergedIDs {
			if id == canonicalID || seen[id] {
				continue
			}
			if err := e.store.MergeEvent(ctx, id, canonicalID, model.MergeSharedAnchorPair, now); err != nil {
				return merged, fmt.Errorf("merge %s into %s: %w", id, canonicalID, err)
			}
			if e.broadcaster != nil {
				e.broadcaster.PublishEventMerged(broadcast.EventMergedData{
					FromEventID: id,
					ToEventID:   canonicalID,
					Reason:      model.MergeSharedAnchorPair,
				})
			}
			seen[id] = true
			merged++
		}
		seen[canonicalID] = true
	}

	return merged, nil
}

// pickCanonical selects the event with the earliest CreatedAt, then the
// highest anchor count, as the surviving canonical for a cluster.
func (e *Engine) pickCanonical(ctx context.Context, eventIDs []string) (string, error) {
	type candidate struct {
		id          string
		createdAt   int64
		anchorCount int
	}

	var best candidate
	for i, id := range eventIDs {
		ev, err := e.store.GetEvent(ctx, id)
		if err != nil {
			return "", err
		}
		count, err := e.store.AnchorCountForEvent(ctx, id)
		if err != nil {
			return "", err
		}
		c := candidate{id: id, createdAt: ev.CreatedAt.UnixNano(), anchorCount: count}

		if i == 0 {
			best = c
			continue
		}
		if c.createdAt < best.createdAt || (c.createdAt == best.createdAt && c.anchorCount > best.anchorCount) {
			best = c
		}
	}
	return best.id, nil
}
