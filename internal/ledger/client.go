// Package ledger owns the connection to the Ethereum-compatible node and
// adapts the raw contract bindings to the narrow read, scan, submit and
// confirm surfaces the rest of the service consumes.
package ledger

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nexusquest/backend/internal/chronicle"
	"github.com/nexusquest/backend/internal/contracts/game"
	"github.com/nexusquest/backend/internal/contracts/market"
	"github.com/nexusquest/backend/internal/roster"
	"github.com/nexusquest/backend/pkg/config"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

// Client is the single ledger connection shared by the whole process.
type Client struct {
	eth     *ethclient.Client
	game    *game.QuestGame
	market  *market.HeroMarket
	account common.Address
	logg    *logger.Logger
}

// Dial connects to the node, derives the signing account and binds both
// contracts. Connection attempts are retried with backoff inside the
// configured dial timeout; a node that is still booting is the common
// case on local stacks.
func Dial(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}

	key, err := crypto.HexToECDSA(cfg.Chain.PrivateKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse signing key")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.Chain.ChainID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build transactor")
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Chain.DialTimeout)
	defer cancel()

	var eth *ethclient.Client
	backoff := retry.WithMaxDuration(cfg.Chain.DialTimeout, retry.NewExponential(time.Second))
	err = retry.Do(dialCtx, backoff, func(ctx context.Context) error {
		var dialErr error
		eth, dialErr = ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if dialErr != nil {
			logg.Warn(logg.WithField(ctx, "error", dialErr.Error()), "ledger dial failed, retrying")
			return retry.RetryableError(dialErr)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRetrieval, err, "dial ledger node")
	}

	questGame, err := game.NewQuestGame(opts, cfg.Game.Address(), eth)
	if err != nil {
		eth.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bind game contract")
	}
	heroMarket, err := market.NewHeroMarket(opts, cfg.Market.Address(), eth)
	if err != nil {
		eth.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bind market contract")
	}

	account := crypto.PubkeyToAddress(key.PublicKey)
	logg.Info(logg.WithAccount(ctx, account.Hex()), "connected to ledger")

	return &Client{
		eth:     eth,
		game:    questGame,
		market:  heroMarket,
		account: account,
		logg:    logg,
	}, nil
}

// Account returns the signing account all transactions are sent from.
func (c *Client) Account() common.Address {
	return c.account
}

// MarketAddress returns the market contract address, used as the approval
// target when selling a hero.
func (c *Client) MarketAddress() common.Address {
	return c.market.Address()
}

// Ping checks node liveness for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.eth.BlockNumber(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRetrieval, err, "ping ledger node")
	}
	return nil
}

// Close tears down the node connection.
func (c *Client) Close() {
	c.eth.Close()
}

// ──────────────────────────────────────────────
//  Reads
// ──────────────────────────────────────────────

// OwnedHeroIDs enumerates the hero ids the address owns, in mint order.
func (c *Client) OwnedHeroIDs(ctx context.Context, owner common.Address) ([]uint64, error) {
	raw, err := c.game.GetHeroes(owner)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

// HeroByID reads the full attribute record for one hero.
func (c *Client) HeroByID(ctx context.Context, id uint64) (roster.Hero, error) {
	info, err := c.game.Characters(new(big.Int).SetUint64(id))
	if err != nil {
		return roster.Hero{}, err
	}
	hero := roster.Hero{
		ID:       id,
		Name:     info.Name,
		Story:    info.Story,
		ImageURI: info.ImageURI,
		Status:   roster.StatusFromStory(info.Story),
	}
	if info.Experience != nil {
		hero.Experience = info.Experience.Uint64()
	}
	return hero, nil
}

// ListingByID reads the market record for one hero id. A never-listed id
// comes back as an inactive zero record, not an error.
func (c *Client) ListingByID(ctx context.Context, id uint64) (roster.Listing, error) {
	info, err := c.market.Listings(new(big.Int).SetUint64(id))
	if err != nil {
		return roster.Listing{}, err
	}
	return roster.Listing{
		HeroID:   id,
		Seller:   info.Seller,
		PriceWei: info.Price,
		Active:   info.Active,
	}, nil
}

// ──────────────────────────────────────────────
//  History scans
// ──────────────────────────────────────────────

// HeroActions scans chain history for owner-submitted actions.
func (c *Client) HeroActions(ctx context.Context, heroID uint64) ([]chronicle.Entry, error) {
	events, err := c.game.FilterAdventureRequested(ctx, new(big.Int).SetUint64(heroID))
	if err != nil {
		return nil, err
	}
	entries := make([]chronicle.Entry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, chronicle.Entry{
			HeroID: heroID,
			Origin: chronicle.OriginUser,
			Text:   ev.Action,
			Block:  ev.Raw.BlockNumber,
			TxHash: ev.Raw.TxHash,
		})
	}
	return entries, nil
}

// HeroOutcomes scans chain history for gamemaster-resolved outcomes.
func (c *Client) HeroOutcomes(ctx context.Context, heroID uint64) ([]chronicle.Entry, error) {
	events, err := c.game.FilterAdventureResolved(ctx, new(big.Int).SetUint64(heroID))
	if err != nil {
		return nil, err
	}
	entries := make([]chronicle.Entry, 0, len(events))
	for _, ev := range events {
		entry := chronicle.Entry{
			HeroID:   heroID,
			Origin:   chronicle.OriginAI,
			Text:     ev.Outcome,
			ImageURI: ev.ImageURI,
			Block:    ev.Raw.BlockNumber,
			TxHash:   ev.Raw.TxHash,
		}
		if ev.XPGained != nil {
			entry.XPGained = ev.XPGained.Uint64()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// WatchAdventureResolved opens the live subscription the watcher runs on.
func (c *Client) WatchAdventureResolved(ctx context.Context, sink chan<- game.AdventureResolvedEvent) (ethereum.Subscription, error) {
	return c.game.WatchAdventureResolved(ctx, sink)
}

// ──────────────────────────────────────────────
//  Submissions
// ──────────────────────────────────────────────

// CreateHero mints a new hero with the given name.
func (c *Client) CreateHero(ctx context.Context, name string) (*types.Transaction, error) {
	return c.game.CreateCharacter(name)
}

// RequestAdventure submits an action for the hero.
func (c *Client) RequestAdventure(ctx context.Context, heroID uint64, action string) (*types.Transaction, error) {
	return c.game.RequestAdventure(new(big.Int).SetUint64(heroID), action)
}

// ApproveMarket grants the market contract transfer rights over a hero.
func (c *Client) ApproveMarket(ctx context.Context, heroID uint64) (*types.Transaction, error) {
	return c.game.Approve(c.market.Address(), new(big.Int).SetUint64(heroID))
}

// ListHero offers an approved hero for sale at the given wei price.
func (c *Client) ListHero(ctx context.Context, heroID uint64, priceWei *big.Int) (*types.Transaction, error) {
	return c.market.ListHero(new(big.Int).SetUint64(heroID), priceWei)
}

// BuyHero purchases a listed hero, attaching the asking price as value.
func (c *Client) BuyHero(ctx context.Context, heroID uint64, priceWei *big.Int) (*types.Transaction, error) {
	return c.market.BuyHero(new(big.Int).SetUint64(heroID), priceWei)
}

// ──────────────────────────────────────────────
//  Confirmation
// ──────────────────────────────────────────────

// Confirm blocks until the transaction is mined and checks the receipt
// status, so a reverted transaction surfaces as an error rather than a
// silent no-op.
func (c *Client) Confirm(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return pkgerrors.New(pkgerrors.CodeSubmission, "transaction reverted").
			WithDetails(map[string]any{"tx_hash": tx.Hash().Hex()})
	}
	return nil
}
