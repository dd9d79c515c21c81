// Package quest orchestrates the gateway operations: minting heroes,
// submitting actions, the approve-then-list sell flow and marketplace
// purchases. It glues the ledger client, the roster cache, the chronicle
// merger and the transaction sequencer together behind one interface.
package quest

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nexusquest/backend/internal/chronicle"
	"github.com/nexusquest/backend/internal/roster"
	"github.com/nexusquest/backend/internal/sequencer"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/nexusquest/backend/pkg/wei"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

// Ledger is the transaction surface the service submits through.
type Ledger interface {
	Account() common.Address
	CreateHero(ctx context.Context, name string) (*types.Transaction, error)
	RequestAdventure(ctx context.Context, heroID uint64, action string) (*types.Transaction, error)
	ApproveMarket(ctx context.Context, heroID uint64) (*types.Transaction, error)
	ListHero(ctx context.Context, heroID uint64, priceWei *big.Int) (*types.Transaction, error)
	BuyHero(ctx context.Context, heroID uint64, priceWei *big.Int) (*types.Transaction, error)
	Confirm(ctx context.Context, tx *types.Transaction) error
}

// Cache is the roster surface the service reads and refreshes.
type Cache interface {
	RefreshOwned(ctx context.Context, owner common.Address) ([]roster.Hero, error)
	RefreshListings(ctx context.Context) ([]roster.Listing, error)
	Heroes(ctx context.Context) ([]roster.Hero, error)
	Hero(ctx context.Context, id uint64) (roster.Hero, error)
	Listings(ctx context.Context) ([]roster.Listing, error)
	Focus(ctx context.Context, id uint64) (roster.Hero, error)
	ClearFocus(ctx context.Context) error
	Focused(ctx context.Context) (*roster.Hero, error)
}

// Chronicler rebuilds a hero's transcript from chain history.
type Chronicler interface {
	Chronicle(ctx context.Context, heroID uint64) ([]chronicle.Entry, error)
}

// Runner executes ordered transaction sequences.
type Runner interface {
	Run(ctx context.Context, steps []sequencer.Step) ([]common.Hash, error)
}

// ServiceParams groups dependencies for the quest service.
type ServiceParams struct {
	Ledger     Ledger
	Cache      Cache
	Chronicler Chronicler
	Runner     Runner
	Logger     *logger.Logger
}

// Service exposes the game and marketplace operations to the gateway.
type Service interface {
	Account() common.Address
	Roster(ctx context.Context) ([]roster.Hero, error)
	Hero(ctx context.Context, id uint64) (roster.Hero, error)
	CreateHero(ctx context.Context, name string) ([]roster.Hero, error)
	Act(ctx context.Context, heroID uint64, action string) (string, error)
	Chronicle(ctx context.Context, heroID uint64) ([]chronicle.Entry, error)
	Focus(ctx context.Context, heroID uint64) (roster.Hero, error)
	ClearFocus(ctx context.Context) error
	Focused(ctx context.Context) (*roster.Hero, error)
	Listings(ctx context.Context) ([]roster.Listing, error)
	Sell(ctx context.Context, heroID uint64, priceEther string) ([]roster.Listing, error)
	Buy(ctx context.Context, heroID uint64) ([]roster.Hero, error)
}

type service struct {
	ledger     Ledger
	cache      Cache
	chronicler Chronicler
	runner     Runner
	logg       *logger.Logger
}

// NewService builds a quest service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger is required")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cache is required")
	}
	if params.Chronicler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chronicler is required")
	}
	if params.Runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sequence runner is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		ledger:     params.Ledger,
		cache:      params.Cache,
		chronicler: params.Chronicler,
		runner:     params.Runner,
		logg:       params.Logger,
	}, nil
}

// Account returns the signing account the gateway plays as.
func (s *service) Account() common.Address {
	return s.ledger.Account()
}

// Roster re-reads the owned-hero set from the ledger and returns it.
func (s *service) Roster(ctx context.Context) ([]roster.Hero, error) {
	return s.cache.RefreshOwned(ctx, s.ledger.Account())
}

// Hero returns the cached snapshot for one hero.
func (s *service) Hero(ctx context.Context, id uint64) (roster.Hero, error) {
	return s.cache.Hero(ctx, id)
}

// CreateHero mints a new hero, waits for the mint to land and returns the
// refreshed roster.
func (s *service) CreateHero(ctx context.Context, name string) ([]roster.Hero, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hero name is required")
	}

	tx, err := s.ledger.CreateHero(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "submit hero mint")
	}
	if err := s.ledger.Confirm(ctx, tx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "confirm hero mint")
	}

	s.logg.Info(s.logg.WithField(ctx, "tx_hash", tx.Hash().Hex()), "hero minted")
	return s.cache.RefreshOwned(ctx, s.ledger.Account())
}

// Act submits a free-text adventure action for the hero. Heroes whose
// tale has ended cannot act again. The resolved outcome arrives later
// through the live event watcher, not through this call.
func (s *service) Act(ctx context.Context, heroID uint64, action string) (string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}

	hero, err := s.cache.Hero(ctx, heroID)
	if err != nil {
		return "", err
	}
	if hero.Status.Terminal() {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "hero's tale is finished").
			WithDetails(map[string]any{"status": string(hero.Status)})
	}

	ctx = s.logg.WithHeroID(ctx, heroID)
	tx, err := s.ledger.RequestAdventure(ctx, heroID, action)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "submit adventure action")
	}
	if err := s.ledger.Confirm(ctx, tx); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "confirm adventure action")
	}

	s.logg.Info(s.logg.WithField(ctx, "tx_hash", tx.Hash().Hex()), "adventure requested")
	return tx.Hash().Hex(), nil
}

// Chronicle rebuilds the hero's transcript from chain history.
func (s *service) Chronicle(ctx context.Context, heroID uint64) ([]chronicle.Entry, error) {
	return s.chronicler.Chronicle(ctx, heroID)
}

func (s *service) Focus(ctx context.Context, heroID uint64) (roster.Hero, error) {
	return s.cache.Focus(ctx, heroID)
}

func (s *service) ClearFocus(ctx context.Context) error {
	return s.cache.ClearFocus(ctx)
}

func (s *service) Focused(ctx context.Context) (*roster.Hero, error) {
	return s.cache.Focused(ctx)
}

// Listings re-probes the market and returns the active listings.
func (s *service) Listings(ctx context.Context) ([]roster.Listing, error) {
	return s.cache.RefreshListings(ctx)
}

// Sell runs the two-step approve-then-list flow. The market contract must
// hold transfer approval before it will accept the listing, so the steps
// are strictly ordered with a confirmation barrier between them.
func (s *service) Sell(ctx context.Context, heroID uint64, priceEther string) ([]roster.Listing, error) {
	priceWei, err := wei.ParseEther(priceEther)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if priceWei.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	if _, err := s.cache.Hero(ctx, heroID); err != nil {
		return nil, err
	}

	ctx = s.logg.WithHeroID(ctx, heroID)
	_, err = s.runner.Run(ctx, []sequencer.Step{
		{
			Name: "approve",
			Submit: func(ctx context.Context) (*types.Transaction, error) {
				return s.ledger.ApproveMarket(ctx, heroID)
			},
		},
		{
			Name: "list",
			Submit: func(ctx context.Context) (*types.Transaction, error) {
				return s.ledger.ListHero(ctx, heroID, priceWei)
			},
		},
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "hero listed for sale")
	if _, err := s.cache.RefreshOwned(ctx, s.ledger.Account()); err != nil {
		return nil, err
	}
	return s.cache.RefreshListings(ctx)
}

// Buy purchases a listed hero at its asking price and returns the
// refreshed roster. Buying your own listing is rejected.
func (s *service) Buy(ctx context.Context, heroID uint64) ([]roster.Hero, error) {
	listings, err := s.cache.Listings(ctx)
	if err != nil {
		return nil, err
	}
	var listing *roster.Listing
	for i := range listings {
		if listings[i].HeroID == heroID {
			listing = &listings[i]
			break
		}
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hero is not listed for sale")
	}
	if listing.Seller == s.ledger.Account() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot buy your own listing")
	}

	ctx = s.logg.WithHeroID(ctx, heroID)
	tx, err := s.ledger.BuyHero(ctx, heroID, listing.PriceWei)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "submit purchase")
	}
	if err := s.ledger.Confirm(ctx, tx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubmission, err, "confirm purchase")
	}

	s.logg.Info(s.logg.WithField(ctx, "tx_hash", tx.Hash().Hex()), "hero purchased")
	if _, err := s.cache.RefreshListings(ctx); err != nil {
		return nil, err
	}
	return s.cache.RefreshOwned(ctx, s.ledger.Account())
}
