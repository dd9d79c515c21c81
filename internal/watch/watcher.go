// Package watch runs the live subscription to gamemaster-resolved
// outcomes and feeds each one into the roster cache as a push.
package watch

import (
	"context"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/nexusquest/backend/internal/contracts/game"
	"github.com/nexusquest/backend/internal/roster"
	"github.com/nexusquest/backend/pkg/logger"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

const defaultResubscribeDelay = 5 * time.Second

// Subscriber opens a live subscription to resolved-outcome events.
type Subscriber interface {
	WatchAdventureResolved(ctx context.Context, sink chan<- game.AdventureResolvedEvent) (ethereum.Subscription, error)
}

// Pusher consumes decoded pushes.
type Pusher interface {
	ApplyPush(ctx context.Context, push roster.Push) (*roster.Hero, error)
}

// Params groups dependencies for the watcher.
type Params struct {
	Subscriber       Subscriber
	Pusher           Pusher
	Logger           *logger.Logger
	ResubscribeDelay time.Duration
}

// Watcher keeps one subscription alive for the life of the process,
// reopening it after transport drops.
type Watcher struct {
	subscriber Subscriber
	pusher     Pusher
	logg       *logger.Logger
	delay      time.Duration
}

func New(params Params) (*Watcher, error) {
	if params.Subscriber == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event subscriber is required")
	}
	if params.Pusher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "push consumer is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	delay := params.ResubscribeDelay
	if delay <= 0 {
		delay = defaultResubscribeDelay
	}
	return &Watcher{
		subscriber: params.Subscriber,
		pusher:     params.Pusher,
		logg:       params.Logger,
		delay:      delay,
	}, nil
}

// Run blocks until the context is canceled, resubscribing whenever the
// underlying subscription fails.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if err := w.watch(ctx); err != nil && ctx.Err() == nil {
			w.logg.Warn(w.logg.WithField(ctx, "error", err.Error()), "event subscription dropped, reopening")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.delay):
		}
	}
}

func (w *Watcher) watch(ctx context.Context) error {
	sink := make(chan game.AdventureResolvedEvent, 8)
	sub, err := w.subscriber.WatchAdventureResolved(ctx, sink)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	w.logg.Info(ctx, "watching resolved adventures")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case ev := <-sink:
			w.handle(ctx, ev)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev game.AdventureResolvedEvent) {
	push := roster.Push{
		HeroID:   ev.TokenID.Uint64(),
		Outcome:  ev.Outcome,
		ImageURI: ev.ImageURI,
		TxHash:   ev.Raw.TxHash,
	}
	if ev.XPGained != nil {
		push.ExperienceDelta = ev.XPGained.Uint64()
	}

	ctx = w.logg.WithHeroID(ctx, push.HeroID)
	if _, err := w.pusher.ApplyPush(ctx, push); err != nil {
		w.logg.Error(ctx, "applying push failed", err)
		return
	}
	w.logg.Info(w.logg.WithField(ctx, "tx_hash", push.TxHash.Hex()), "adventure outcome applied")
}
