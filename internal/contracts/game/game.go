// Package game provides high-level Go bindings for the QuestGame contract.
// The contract mints hero NFTs, accepts adventure actions from owners and
// records AI-resolved outcomes emitted by the off-chain gamemaster.
package game

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// QuestGame is a high-level wrapper around the on-chain QuestGame contract.
type QuestGame struct {
	abi          abi.ABI
	address      common.Address
	contract     *bind.BoundContract
	backend      bind.ContractBackend
	transactOpts *bind.TransactOpts
}

// NewQuestGame connects to an already-deployed QuestGame contract.
func NewQuestGame(opts *bind.TransactOpts, addr common.Address, backend bind.ContractBackend) (*QuestGame, error) {
	parsed, err := abi.JSON(strings.NewReader(QuestGameABI))
	if err != nil {
		return nil, err
	}
	bound := bind.NewBoundContract(addr, parsed, backend, backend, backend)
	return &QuestGame{
		abi:          parsed,
		address:      addr,
		contract:     bound,
		backend:      backend,
		transactOpts: opts,
	}, nil
}

// Address returns the contract address the binding targets.
func (g *QuestGame) Address() common.Address {
	return g.address
}

// ──────────────────────────────────────────────
//  Write methods
// ──────────────────────────────────────────────

// CreateCharacter mints a new hero with the given display name.
func (g *QuestGame) CreateCharacter(name string) (*types.Transaction, error) {
	return g.contract.Transact(g.transactOpts, "createCharacter", name)
}

// RequestAdventure submits a free-text action for the hero. The off-chain
// gamemaster resolves it asynchronously via resolveAdventure.
func (g *QuestGame) RequestAdventure(tokenID *big.Int, action string) (*types.Transaction, error) {
	return g.contract.Transact(g.transactOpts, "requestAdventure", tokenID, action)
}

// Approve grants another address permission to transfer a specific hero.
func (g *QuestGame) Approve(approved common.Address, tokenID *big.Int) (*types.Transaction, error) {
	return g.contract.Transact(g.transactOpts, "approve", approved, tokenID)
}

// ──────────────────────────────────────────────
//  Read methods
// ──────────────────────────────────────────────

// HeroInfo holds the on-chain data for a single hero.
type HeroInfo struct {
	Name       string
	Experience *big.Int
	Story      string
	ImageURI   string
}

// Characters reads the full attribute tuple for a hero id. Fails when the
// id was never minted.
func (g *QuestGame) Characters(tokenID *big.Int) (*HeroInfo, error) {
	var out []interface{}
	err := g.contract.Call(&bind.CallOpts{}, &out, "characters", tokenID)
	if err != nil {
		return nil, err
	}
	return &HeroInfo{
		Name:       out[0].(string),
		Experience: out[1].(*big.Int),
		Story:      out[2].(string),
		ImageURI:   out[3].(string),
	}, nil
}

// GetHeroes returns the ordered token ids owned by an address.
func (g *QuestGame) GetHeroes(owner common.Address) ([]*big.Int, error) {
	var out []interface{}
	err := g.contract.Call(&bind.CallOpts{}, &out, "getHeroes", owner)
	if err != nil {
		return nil, err
	}
	return out[0].([]*big.Int), nil
}

// ──────────────────────────────────────────────
//  Events
// ──────────────────────────────────────────────

// AdventureRequestedEvent is an owner-submitted action observed on-chain.
type AdventureRequestedEvent struct {
	TokenID *big.Int
	Action  string
	Raw     types.Log
}

// AdventureResolvedEvent is a gamemaster-resolved outcome observed on-chain.
type AdventureResolvedEvent struct {
	TokenID  *big.Int
	Outcome  string
	XPGained *big.Int
	ImageURI string
	Raw      types.Log
}

// FilterAdventureRequested scans the full chain history for actions
// submitted for the given hero.
func (g *QuestGame) FilterAdventureRequested(ctx context.Context, tokenID *big.Int) ([]AdventureRequestedEvent, error) {
	logs, err := g.filterHistory(ctx, "AdventureRequested", tokenID)
	if err != nil {
		return nil, err
	}
	events := make([]AdventureRequestedEvent, 0, len(logs))
	for _, lg := range logs {
		unpacked, err := g.abi.Unpack("AdventureRequested", lg.Data)
		if err != nil {
			return nil, err
		}
		events = append(events, AdventureRequestedEvent{
			TokenID: tokenIDFromTopics(lg),
			Action:  unpacked[0].(string),
			Raw:     lg,
		})
	}
	return events, nil
}

// FilterAdventureResolved scans the full chain history for resolved
// outcomes for the given hero.
func (g *QuestGame) FilterAdventureResolved(ctx context.Context, tokenID *big.Int) ([]AdventureResolvedEvent, error) {
	logs, err := g.filterHistory(ctx, "AdventureResolved", tokenID)
	if err != nil {
		return nil, err
	}
	events := make([]AdventureResolvedEvent, 0, len(logs))
	for _, lg := range logs {
		ev, err := g.unpackResolved(lg)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// WatchAdventureResolved subscribes to resolved outcomes for all heroes
// and forwards decoded events to sink until the subscription fails or the
// context is canceled.
func (g *QuestGame) WatchAdventureResolved(ctx context.Context, sink chan<- AdventureResolvedEvent) (ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{g.address},
		Topics:    [][]common.Hash{{g.abi.Events["AdventureResolved"].ID}},
	}
	raw := make(chan types.Log)
	sub, err := g.backend.SubscribeFilterLogs(ctx, query, raw)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return
			case lg, ok := <-raw:
				if !ok {
					return
				}
				if lg.Removed {
					continue
				}
				ev, err := g.unpackResolved(lg)
				if err != nil {
					continue
				}
				select {
				case sink <- ev:
				case <-ctx.Done():
					sub.Unsubscribe()
					return
				}
			}
		}
	}()
	return sub, nil
}

// filterHistory runs an unbounded range scan from genesis to the latest
// confirmed block for one event topic scoped to a hero id.
func (g *QuestGame) filterHistory(ctx context.Context, event string, tokenID *big.Int) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{g.address},
		Topics: [][]common.Hash{
			{g.abi.Events[event].ID},
			{common.BigToHash(tokenID)},
		},
	}
	logs, err := g.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, err
	}
	kept := logs[:0]
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		kept = append(kept, lg)
	}
	return kept, nil
}

func (g *QuestGame) unpackResolved(lg types.Log) (AdventureResolvedEvent, error) {
	unpacked, err := g.abi.Unpack("AdventureResolved", lg.Data)
	if err != nil {
		return AdventureResolvedEvent{}, err
	}
	return AdventureResolvedEvent{
		TokenID:  tokenIDFromTopics(lg),
		Outcome:  unpacked[0].(string),
		XPGained: unpacked[1].(*big.Int),
		ImageURI: unpacked[2].(string),
		Raw:      lg,
	}, nil
}

func tokenIDFromTopics(lg types.Log) *big.Int {
	if len(lg.Topics) < 2 {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(lg.Topics[1].Bytes())
}
