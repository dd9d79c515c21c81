// Package roster owns the in-memory mirror of on-chain hero and listing
// state. All mutations are funneled through a single-consumer op queue so
// concurrent refreshes and live push events can never interleave.
package roster

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// HeroStatus is the explicit lifecycle tag for a hero. It is derived once
// per applied outcome instead of substring-matching the narrative at
// render time.
type HeroStatus string

const (
	HeroStatusActive     HeroStatus = "active"
	HeroStatusVictorious HeroStatus = "victorious"
	HeroStatusDefeated   HeroStatus = "defeated"
)

// Terminal reports whether the hero can no longer act.
func (s HeroStatus) Terminal() bool {
	return s == HeroStatusVictorious || s == HeroStatusDefeated
}

// Terminal markers the gamemaster appends to a closing outcome. They are
// the wire format the contract stores, so deriving the status tag still
// has to inspect the text; this is the only place that does.
const (
	markerVictory  = "[VICTORY]"
	markerGameOver = "[GAME OVER]"
)

// StatusFromStory derives the lifecycle tag from a resolved outcome.
func StatusFromStory(story string) HeroStatus {
	switch {
	case strings.Contains(story, markerVictory):
		return HeroStatusVictorious
	case strings.Contains(story, markerGameOver):
		return HeroStatusDefeated
	default:
		return HeroStatusActive
	}
}

// Hero is the cached snapshot of one on-chain hero record.
type Hero struct {
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	Experience uint64     `json:"experience"`
	Story      string     `json:"story"`
	ImageURI   string     `json:"image_uri"`
	Status     HeroStatus `json:"status"`
}

// Listing is an active marketplace offer joined with the hero's display
// attributes.
type Listing struct {
	HeroID   uint64         `json:"hero_id"`
	Seller   common.Address `json:"seller"`
	PriceWei *big.Int       `json:"price_wei"`
	Active   bool           `json:"active"`

	Name       string     `json:"name"`
	Experience uint64     `json:"experience"`
	Story      string     `json:"story"`
	ImageURI   string     `json:"image_uri"`
	Status     HeroStatus `json:"status"`
}

// Push is a decoded live resolved-outcome notification.
type Push struct {
	HeroID          uint64
	Outcome         string
	ExperienceDelta uint64
	ImageURI        string
	TxHash          common.Hash
}
