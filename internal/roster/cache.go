package roster

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/nexusquest/backend/pkg/metrics"
	"go.uber.org/multierr"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

// Reader is the ledger read surface the cache depends on.
type Reader interface {
	OwnedHeroIDs(ctx context.Context, owner common.Address) ([]uint64, error)
	HeroByID(ctx context.Context, id uint64) (Hero, error)
	ListingByID(ctx context.Context, id uint64) (Listing, error)
}

// Params groups dependencies for the cache.
type Params struct {
	Reader    Reader
	Logger    *logger.Logger
	Metrics   *metrics.CoreMetrics
	ScanLimit uint64
}

// Cache mirrors owned heroes and active listings. It is the only shared
// mutable state in the core; every mutation is an op applied by the Run
// loop in strict arrival order, so no two mutations ever interleave.
type Cache struct {
	reader    Reader
	logg      *logger.Logger
	metrics   *metrics.CoreMetrics
	scanLimit uint64

	ops chan op

	// Owned by the Run loop. Never touched outside an op.
	heroes    []Hero
	listings  []Listing
	owner     common.Address
	hasOwner  bool
	focusedID uint64
	focused   bool
	override  *pushOverride

	// Ring of recently applied push tx hashes. Redeliveries can arrive
	// out of order, so one remembered hash is not enough.
	seenPushes [recentPushWindow]common.Hash
	seenNext   int
}

const recentPushWindow = 16

type op struct {
	apply func()
	done  chan struct{}
}

// pushOverride pins the focused hero's detail fields to the latest push
// payload so a slower roster refresh can never roll them back.
type pushOverride struct {
	heroID     uint64
	experience uint64
	story      string
	imageURI   string
	status     HeroStatus
}

// New builds a cache. Run must be started before any other method is used.
func New(params Params) (*Cache, error) {
	if params.Reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger reader is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.ScanLimit == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market scan limit must be positive")
	}
	return &Cache{
		reader:    params.Reader,
		logg:      params.Logger,
		metrics:   params.Metrics,
		scanLimit: params.ScanLimit,
		ops:       make(chan op, 16),
	}, nil
}

// Run consumes the mutation queue until the context is canceled.
func (c *Cache) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o := <-c.ops:
			o.apply()
			close(o.done)
		}
	}
}

func (c *Cache) do(ctx context.Context, fn func()) error {
	o := op{apply: fn, done: make(chan struct{})}
	select {
	case c.ops <- o:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshOwned rebuilds the owned-hero set for the account from scratch.
// Per-id fetch failures are skipped; an enumeration failure leaves the
// cache untouched. Focus is preserved by id across the swap.
func (c *Cache) RefreshOwned(ctx context.Context, owner common.Address) ([]Hero, error) {
	ids, err := c.reader.OwnedHeroIDs(ctx, owner)
	if err != nil {
		c.metrics.IncRefresh("owned", metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeRetrieval, err, "enumerate owned heroes")
	}

	fetched := make([]Hero, 0, len(ids))
	for _, id := range ids {
		hero, err := c.reader.HeroByID(ctx, id)
		if err != nil {
			c.logg.Warn(c.logg.WithHeroID(ctx, id), "skipping unreadable hero during refresh")
			continue
		}
		fetched = append(fetched, hero)
	}

	var snapshot []Hero
	if err := c.do(ctx, func() {
		c.owner = owner
		c.hasOwner = true
		c.heroes = fetched
		c.reapplyOverride()
		snapshot = copyHeroes(c.heroes)
	}); err != nil {
		c.metrics.IncRefresh("owned", metrics.OutcomeError)
		return nil, err
	}
	c.metrics.IncRefresh("owned", metrics.OutcomeOK)
	return snapshot, nil
}

// RefreshListings probes ids 1..ScanLimit against the market. A failed
// probe means "not listed"; a listing whose hero attributes cannot be
// joined is dropped rather than shown with partial data.
func (c *Cache) RefreshListings(ctx context.Context) ([]Listing, error) {
	var probeErrs error
	joined := make([]Listing, 0)
	for id := uint64(1); id <= c.scanLimit; id++ {
		listing, err := c.reader.ListingByID(ctx, id)
		if err != nil {
			probeErrs = multierr.Append(probeErrs, fmt.Errorf("listing %d: %w", id, err))
			continue
		}
		if !listing.Active {
			continue
		}
		hero, err := c.reader.HeroByID(ctx, listing.HeroID)
		if err != nil {
			c.logg.Warn(c.logg.WithHeroID(ctx, listing.HeroID), "dropping listing with unresolvable hero")
			continue
		}
		listing.Name = hero.Name
		listing.Experience = hero.Experience
		listing.Story = hero.Story
		listing.ImageURI = hero.ImageURI
		listing.Status = hero.Status
		joined = append(joined, listing)
	}
	if probeErrs != nil {
		c.logg.Debug(c.logg.WithField(ctx, "probe_errors", probeErrs.Error()), "listing probes missed")
	}

	var snapshot []Listing
	if err := c.do(ctx, func() {
		c.listings = joined
		snapshot = copyListings(c.listings)
	}); err != nil {
		c.metrics.IncRefresh("listings", metrics.OutcomeError)
		return nil, err
	}
	c.metrics.IncRefresh("listings", metrics.OutcomeOK)
	return snapshot, nil
}

// ApplyPush consumes one live resolved-outcome notification. The focused
// hero is updated in place and the payload pinned, then the whole roster
// is refreshed; the pin guarantees the focused view reflects the push
// even when a refresh carrying older data lands afterwards.
func (c *Cache) ApplyPush(ctx context.Context, push Push) (*Hero, error) {
	var (
		updated   *Hero
		refreshAs common.Address
		doRefresh bool
		duplicate bool
	)
	if err := c.do(ctx, func() {
		if c.seenPush(push.TxHash) {
			duplicate = true
			return
		}
		c.rememberPush(push.TxHash)

		if c.focused && c.focusedID == push.HeroID {
			if idx, ok := c.index(push.HeroID); ok {
				hero := &c.heroes[idx]
				hero.Experience += push.ExperienceDelta
				hero.Story = push.Outcome
				hero.ImageURI = push.ImageURI
				hero.Status = StatusFromStory(push.Outcome)
				c.override = &pushOverride{
					heroID:     hero.ID,
					experience: hero.Experience,
					story:      hero.Story,
					imageURI:   hero.ImageURI,
					status:     hero.Status,
				}
				cp := *hero
				updated = &cp
			}
		}
		refreshAs, doRefresh = c.owner, c.hasOwner
	}); err != nil {
		c.metrics.IncPush(metrics.OutcomeError)
		return nil, err
	}
	if duplicate {
		return nil, nil
	}

	// The push payload is trusted for the focused detail view only; the
	// roster-wide view is always reconciled against the ledger.
	if doRefresh {
		if _, err := c.RefreshOwned(ctx, refreshAs); err != nil {
			c.metrics.IncPush(metrics.OutcomeError)
			return updated, err
		}
	}
	c.metrics.IncPush(metrics.OutcomeOK)
	return updated, nil
}

// Focus marks a hero as the one being played. The hero must be in the
// cached roster.
func (c *Cache) Focus(ctx context.Context, id uint64) (Hero, error) {
	var (
		hero  Hero
		found bool
	)
	if err := c.do(ctx, func() {
		idx, ok := c.index(id)
		if !ok {
			return
		}
		if c.override != nil && c.override.heroID != id {
			c.override = nil
		}
		c.focusedID = id
		c.focused = true
		hero = c.heroes[idx]
		found = true
	}); err != nil {
		return Hero{}, err
	}
	if !found {
		return Hero{}, pkgerrors.New(pkgerrors.CodeNotFound, "hero not found in roster")
	}
	return hero, nil
}

// ClearFocus returns to the roster view.
func (c *Cache) ClearFocus(ctx context.Context) error {
	return c.do(ctx, func() {
		c.focused = false
		c.focusedID = 0
		c.override = nil
	})
}

// Focused returns the focused hero re-resolved against the latest
// snapshot, or nil when nothing is focused.
func (c *Cache) Focused(ctx context.Context) (*Hero, error) {
	var hero *Hero
	if err := c.do(ctx, func() {
		if !c.focused {
			return
		}
		if idx, ok := c.index(c.focusedID); ok {
			cp := c.heroes[idx]
			hero = &cp
		}
	}); err != nil {
		return nil, err
	}
	return hero, nil
}

// Hero returns the cached snapshot for one hero id.
func (c *Cache) Hero(ctx context.Context, id uint64) (Hero, error) {
	var (
		hero  Hero
		found bool
	)
	if err := c.do(ctx, func() {
		if idx, ok := c.index(id); ok {
			hero = c.heroes[idx]
			found = true
		}
	}); err != nil {
		return Hero{}, err
	}
	if !found {
		return Hero{}, pkgerrors.New(pkgerrors.CodeNotFound, "hero not found in roster")
	}
	return hero, nil
}

// Heroes returns the cached roster snapshot.
func (c *Cache) Heroes(ctx context.Context) ([]Hero, error) {
	var snapshot []Hero
	if err := c.do(ctx, func() {
		snapshot = copyHeroes(c.heroes)
	}); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Listings returns the cached listings snapshot.
func (c *Cache) Listings(ctx context.Context) ([]Listing, error) {
	var snapshot []Listing
	if err := c.do(ctx, func() {
		snapshot = copyListings(c.listings)
	}); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Cache) seenPush(hash common.Hash) bool {
	if hash == (common.Hash{}) {
		return false
	}
	for _, seen := range c.seenPushes {
		if seen == hash {
			return true
		}
	}
	return false
}

func (c *Cache) rememberPush(hash common.Hash) {
	if hash == (common.Hash{}) {
		return
	}
	c.seenPushes[c.seenNext] = hash
	c.seenNext = (c.seenNext + 1) % recentPushWindow
}

func (c *Cache) index(id uint64) (int, bool) {
	for i := range c.heroes {
		if c.heroes[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (c *Cache) reapplyOverride() {
	if c.override == nil || !c.focused || c.override.heroID != c.focusedID {
		return
	}
	idx, ok := c.index(c.override.heroID)
	if !ok {
		return
	}
	hero := &c.heroes[idx]
	hero.Experience = c.override.experience
	hero.Story = c.override.story
	hero.ImageURI = c.override.imageURI
	hero.Status = c.override.status
}

func copyHeroes(heroes []Hero) []Hero {
	return append([]Hero(nil), heroes...)
}

func copyListings(listings []Listing) []Listing {
	return append([]Listing(nil), listings...)
}
