package sequencer_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nexusquest/backend/internal/sequencer"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

type fakeConfirmer struct {
	confirmed []*types.Transaction
	failOn    int
}

func (f *fakeConfirmer) Confirm(_ context.Context, tx *types.Transaction) error {
	if f.failOn > 0 && len(f.confirmed)+1 == f.failOn {
		return fmt.Errorf("transaction reverted")
	}
	f.confirmed = append(f.confirmed, tx)
	return nil
}

func newSequencer(t *testing.T, confirmer sequencer.Confirmer) *sequencer.Sequencer {
	t.Helper()
	seq, err := sequencer.New(sequencer.Params{
		Confirmer: confirmer,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return seq
}

func makeStep(name string, nonce uint64, submitted *[]string) sequencer.Step {
	return sequencer.Step{
		Name: name,
		Submit: func(context.Context) (*types.Transaction, error) {
			*submitted = append(*submitted, name)
			return types.NewTx(&types.LegacyTx{Nonce: nonce}), nil
		},
	}
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	confirmer := &fakeConfirmer{}
	seq := newSequencer(t, confirmer)

	var submitted []string
	mined, err := seq.Run(context.Background(), []sequencer.Step{
		makeStep("approve", 1, &submitted),
		makeStep("list", 2, &submitted),
	})
	require.NoError(t, err)
	require.Len(t, mined, 2)
	require.Equal(t, []string{"approve", "list"}, submitted)
	require.Len(t, confirmer.confirmed, 2)
}

func TestRunHaltsOnSubmitFailure(t *testing.T) {
	confirmer := &fakeConfirmer{}
	seq := newSequencer(t, confirmer)

	var submitted []string
	steps := []sequencer.Step{
		makeStep("approve", 1, &submitted),
		{
			Name: "list",
			Submit: func(context.Context) (*types.Transaction, error) {
				return nil, fmt.Errorf("nonce too low")
			},
		},
		makeStep("never", 3, &submitted),
	}

	mined, err := seq.Run(context.Background(), steps)
	if !pkgerrors.Is(err, pkgerrors.CodeSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
	require.Len(t, mined, 1, "the already-mined step is reported")
	require.Equal(t, []string{"approve"}, submitted, "later steps must not run")

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "list", details["step"])
	require.Equal(t, 1, details["step_index"])
}

func TestRunHaltsOnConfirmFailure(t *testing.T) {
	confirmer := &fakeConfirmer{failOn: 1}
	seq := newSequencer(t, confirmer)

	var submitted []string
	mined, err := seq.Run(context.Background(), []sequencer.Step{
		makeStep("approve", 1, &submitted),
		makeStep("never", 2, &submitted),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
	require.Empty(t, mined)
	require.Equal(t, []string{"approve"}, submitted)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "approve", details["step"])
	require.NotEmpty(t, details["tx_hash"])
}

func TestRunRejectsEmptySequence(t *testing.T) {
	seq := newSequencer(t, &fakeConfirmer{})
	_, err := seq.Run(context.Background(), nil)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
