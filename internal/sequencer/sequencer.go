// Package sequencer runs multi-step transaction flows where each step
// must be mined before the next may be submitted, such as the
// approve-then-list flow for selling a hero.
package sequencer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/nexusquest/backend/pkg/metrics"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

// Step is one transaction in a sequence. Submit builds and sends the
// transaction; the sequencer handles the confirmation barrier.
type Step struct {
	Name   string
	Submit func(ctx context.Context) (*types.Transaction, error)
}

// Confirmer blocks until a submitted transaction is mined and succeeded.
type Confirmer interface {
	Confirm(ctx context.Context, tx *types.Transaction) error
}

// Params groups dependencies for the sequencer.
type Params struct {
	Confirmer Confirmer
	Logger    *logger.Logger
	Metrics   *metrics.CoreMetrics
}

// Sequencer submits steps strictly in order with a mined-confirmation
// barrier between them. It halts at the first failure and never rolls
// back; a mined earlier step stays mined.
type Sequencer struct {
	confirmer Confirmer
	logg      *logger.Logger
	metrics   *metrics.CoreMetrics
}

func New(params Params) (*Sequencer, error) {
	if params.Confirmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmer is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Sequencer{
		confirmer: params.Confirmer,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Run executes the steps in order and returns the mined transaction
// hashes. On failure the error carries the failing step's name and index
// so the caller can report exactly how far the sequence got.
func (s *Sequencer) Run(ctx context.Context, steps []Step) ([]common.Hash, error) {
	if len(steps) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sequence has no steps")
	}

	mined := make([]common.Hash, 0, len(steps))
	for i, step := range steps {
		stepCtx := s.logg.WithFields(ctx, map[string]any{
			"step":       step.Name,
			"step_index": i,
		})

		tx, err := step.Submit(stepCtx)
		if err != nil {
			s.metrics.IncSequence(metrics.OutcomeError)
			return mined, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "submit transaction").
				WithDetails(map[string]any{"step": step.Name, "step_index": i})
		}
		s.logg.Info(s.logg.WithField(stepCtx, "tx_hash", tx.Hash().Hex()), "transaction submitted")

		if err := s.confirmer.Confirm(stepCtx, tx); err != nil {
			s.metrics.IncSequence(metrics.OutcomeError)
			return mined, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "await confirmation").
				WithDetails(map[string]any{"step": step.Name, "step_index": i, "tx_hash": tx.Hash().Hex()})
		}
		mined = append(mined, tx.Hash())
	}

	s.metrics.IncSequence(metrics.OutcomeOK)
	return mined, nil
}
