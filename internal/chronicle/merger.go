// Package chronicle reconstructs a hero's adventure transcript from the
// two on-chain event streams: owner-submitted actions and gamemaster
// outcomes. The chain is the only source of truth; nothing is stored.
package chronicle

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/nexusquest/backend/pkg/metrics"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

// Origin tags which side of the dialogue produced an entry.
type Origin string

const (
	OriginUser Origin = "user"
	OriginAI   Origin = "ai"
)

// Entry is one line of a hero's transcript.
type Entry struct {
	HeroID   uint64      `json:"hero_id"`
	Origin   Origin      `json:"origin"`
	Text     string      `json:"text"`
	XPGained uint64      `json:"xp_gained,omitempty"`
	ImageURI string      `json:"image_uri,omitempty"`
	Block    uint64      `json:"block"`
	TxHash   common.Hash `json:"tx_hash"`
}

// EventSource scans chain history for one hero's events.
type EventSource interface {
	HeroActions(ctx context.Context, heroID uint64) ([]Entry, error)
	HeroOutcomes(ctx context.Context, heroID uint64) ([]Entry, error)
}

// Params groups dependencies for the merger.
type Params struct {
	Source  EventSource
	Logger  *logger.Logger
	Metrics *metrics.CoreMetrics
}

// Merger builds newest-first transcripts from the raw event streams.
type Merger struct {
	source  EventSource
	logg    *logger.Logger
	metrics *metrics.CoreMetrics
}

func New(params Params) (*Merger, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event source is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Merger{
		source:  params.Source,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Chronicle scans both event streams for the hero and returns the merged
// transcript, newest first. An outcome that landed in the same block as
// its action sorts ahead of it.
func (m *Merger) Chronicle(ctx context.Context, heroID uint64) ([]Entry, error) {
	ctx = m.logg.WithHeroID(ctx, heroID)

	actions, err := m.source.HeroActions(ctx, heroID)
	if err != nil {
		m.metrics.IncMerge(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeRetrieval, err, "scan hero actions")
	}
	outcomes, err := m.source.HeroOutcomes(ctx, heroID)
	if err != nil {
		m.metrics.IncMerge(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeRetrieval, err, "scan hero outcomes")
	}

	merged := merge(actions, outcomes)
	m.logg.Debug(m.logg.WithField(ctx, "entries", len(merged)), "chronicle merged")
	m.metrics.IncMerge(metrics.OutcomeOK)
	return merged, nil
}

// merge combines the two streams into one newest-first transcript.
// Actions go in first so the stable ascending sort keeps an action before
// the outcome that shares its block; the final reversal then shows the
// outcome above the action it answers.
func merge(actions, outcomes []Entry) []Entry {
	combined := make([]Entry, 0, len(actions)+len(outcomes))
	combined = append(combined, actions...)
	combined = append(combined, outcomes...)

	seen := make(map[string]struct{}, len(combined))
	deduped := combined[:0]
	for _, entry := range combined {
		key := dedupeKey(entry)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, entry)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Block < deduped[j].Block
	})
	for i, j := 0, len(deduped)-1; i < j; i, j = i+1, j-1 {
		deduped[i], deduped[j] = deduped[j], deduped[i]
	}
	return deduped
}

// dedupeKey identifies an entry across overlapping scans. A transaction
// carries at most one action and one outcome, so origin plus tx hash is
// unique.
func dedupeKey(entry Entry) string {
	return fmt.Sprintf("%s/%s", entry.Origin, entry.TxHash.Hex())
}
