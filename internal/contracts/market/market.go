// Package market provides high-level Go bindings for the HeroMarket
// escrow contract where heroes are listed and purchased.
package market

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// HeroMarket is a high-level wrapper around the on-chain HeroMarket contract.
type HeroMarket struct {
	abi          abi.ABI
	address      common.Address
	contract     *bind.BoundContract
	backend      bind.ContractBackend
	transactOpts *bind.TransactOpts
}

// NewHeroMarket connects to an already-deployed HeroMarket contract.
func NewHeroMarket(opts *bind.TransactOpts, addr common.Address, backend bind.ContractBackend) (*HeroMarket, error) {
	parsed, err := abi.JSON(strings.NewReader(HeroMarketABI))
	if err != nil {
		return nil, err
	}
	bound := bind.NewBoundContract(addr, parsed, backend, backend, backend)
	return &HeroMarket{
		abi:          parsed,
		address:      addr,
		contract:     bound,
		backend:      backend,
		transactOpts: opts,
	}, nil
}

// Address returns the contract address the binding targets.
func (m *HeroMarket) Address() common.Address {
	return m.address
}

// ListHero offers a hero for sale. The market must already hold transfer
// approval for the token.
func (m *HeroMarket) ListHero(tokenID, price *big.Int) (*types.Transaction, error) {
	return m.contract.Transact(m.transactOpts, "listHero", tokenID, price)
}

// BuyHero purchases a listed hero, attaching the asking price as value.
// The shared opts are copied per call; concurrent transactions must never
// see each other's value.
func (m *HeroMarket) BuyHero(tokenID, price *big.Int) (*types.Transaction, error) {
	opts := *m.transactOpts
	opts.Value = price
	return m.contract.Transact(&opts, "buyHero", tokenID)
}

// ListingInfo holds the on-chain listing record for a hero id. A never
// listed id reads back as the zero record with Active == false.
type ListingInfo struct {
	Seller common.Address
	Price  *big.Int
	Active bool
}

// Listings reads the listing record for a hero id.
func (m *HeroMarket) Listings(tokenID *big.Int) (*ListingInfo, error) {
	var out []interface{}
	err := m.contract.Call(&bind.CallOpts{}, &out, "listings", tokenID)
	if err != nil {
		return nil, err
	}
	return &ListingInfo{
		Seller: out[0].(common.Address),
		Price:  out[1].(*big.Int),
		Active: out[2].(bool),
	}, nil
}
