package roster_test

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nexusquest/backend/internal/roster"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

type fakeReader struct {
	mu         sync.Mutex
	ids        []uint64
	idsErr     error
	heroes     map[uint64]roster.Hero
	listings   map[uint64]roster.Listing
	ownedCalls int
}

func (f *fakeReader) OwnedHeroIDs(_ context.Context, _ common.Address) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownedCalls++
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return append([]uint64(nil), f.ids...), nil
}

func (f *fakeReader) HeroByID(_ context.Context, id uint64) (roster.Hero, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hero, ok := f.heroes[id]
	if !ok {
		return roster.Hero{}, fmt.Errorf("hero %d: execution reverted", id)
	}
	return hero, nil
}

func (f *fakeReader) ListingByID(_ context.Context, id uint64) (roster.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[id]
	if !ok {
		return roster.Listing{}, fmt.Errorf("listing %d: execution reverted", id)
	}
	return listing, nil
}

func (f *fakeReader) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ownedCalls
}

var owner = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")

func newCache(t *testing.T, reader roster.Reader) *roster.Cache {
	t.Helper()
	cache, err := roster.New(roster.Params{
		Reader:    reader,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		ScanLimit: 10,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = cache.Run(ctx) }()
	return cache
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	if _, err := roster.New(roster.Params{Logger: logg, ScanLimit: 10}); err == nil {
		t.Fatal("expected error for nil reader")
	}
	if _, err := roster.New(roster.Params{Reader: &fakeReader{}, ScanLimit: 10}); err == nil {
		t.Fatal("expected error for nil logger")
	}
	if _, err := roster.New(roster.Params{Reader: &fakeReader{}, Logger: logg}); err == nil {
		t.Fatal("expected error for zero scan limit")
	}
}

func TestRefreshOwnedReplacesRoster(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1, 2},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10, Story: "A quiet start.", Status: roster.HeroStatusActive},
			2: {ID: 2, Name: "Borin", Experience: 25, Story: "Deep in the mines.", Status: roster.HeroStatusActive},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	heroes, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	require.Len(t, heroes, 2)
	require.Equal(t, "Aria", heroes[0].Name)

	reader.mu.Lock()
	reader.ids = []uint64{2}
	reader.mu.Unlock()

	heroes, err = cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	require.Len(t, heroes, 1)
	require.Equal(t, uint64(2), heroes[0].ID)

	if _, err := cache.Hero(ctx, 1); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found for evicted hero, got %v", err)
	}
}

func TestRefreshOwnedEnumerationFailureLeavesCacheUntouched(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)

	reader.mu.Lock()
	reader.idsErr = fmt.Errorf("rpc: connection refused")
	reader.mu.Unlock()

	_, err = cache.RefreshOwned(ctx, owner)
	if !pkgerrors.Is(err, pkgerrors.CodeRetrieval) {
		t.Fatalf("expected retrieval error, got %v", err)
	}

	heroes, err := cache.Heroes(ctx)
	require.NoError(t, err)
	require.Len(t, heroes, 1, "failed refresh must not evict cached heroes")
}

func TestRefreshOwnedSkipsUnreadableHero(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1, 2, 3},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria"},
			3: {ID: 3, Name: "Cyra"},
		},
	}
	cache := newCache(t, reader)

	heroes, err := cache.RefreshOwned(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, heroes, 2)
	require.Equal(t, uint64(1), heroes[0].ID)
	require.Equal(t, uint64(3), heroes[1].ID)
}

func TestFocusPreservedAcrossRefresh(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1, 2},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10},
			2: {ID: 2, Name: "Borin", Experience: 25},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)

	focused, err := cache.Focus(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Borin", focused.Name)

	reader.mu.Lock()
	reader.heroes[2] = roster.Hero{ID: 2, Name: "Borin", Experience: 40}
	reader.mu.Unlock()

	_, err = cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)

	got, err := cache.Focused(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(40), got.Experience, "focus must re-resolve against the new snapshot")
}

func TestFocusUnknownHero(t *testing.T) {
	cache := newCache(t, &fakeReader{})
	_, err := cache.Focus(context.Background(), 9)
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestClearFocus(t *testing.T) {
	reader := &fakeReader{
		ids:    []uint64{1},
		heroes: map[uint64]roster.Hero{1: {ID: 1, Name: "Aria"}},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	_, err = cache.Focus(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, cache.ClearFocus(ctx))

	got, err := cache.Focused(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestApplyPushWinsOverStaleRefresh(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10, Story: "A quiet start.", Status: roster.HeroStatusActive},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	_, err = cache.Focus(ctx, 1)
	require.NoError(t, err)

	// The reader keeps serving the pre-push record, as a lagging node would.
	updated, err := cache.ApplyPush(ctx, roster.Push{
		HeroID:          1,
		Outcome:         "The door creaks open.",
		ExperienceDelta: 5,
		ImageURI:        "ipfs://door",
		TxHash:          common.HexToHash("0x01"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, uint64(15), updated.Experience)

	got, err := cache.Focused(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(15), got.Experience)
	require.Equal(t, "The door creaks open.", got.Story)
	require.Equal(t, "ipfs://door", got.ImageURI)

	// An explicit stale refresh must not roll the focused hero back either.
	_, err = cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)

	got, err = cache.Focused(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(15), got.Experience)
	require.Equal(t, "The door creaks open.", got.Story)
}

func TestApplyPushDerivesTerminalStatus(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10, Status: roster.HeroStatusActive},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	_, err = cache.Focus(ctx, 1)
	require.NoError(t, err)

	updated, err := cache.ApplyPush(ctx, roster.Push{
		HeroID:  1,
		Outcome: "The dragon wins. [GAME OVER]",
		TxHash:  common.HexToHash("0x02"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, roster.HeroStatusDefeated, updated.Status)
	require.True(t, updated.Status.Terminal())
}

func TestApplyPushDuplicateIsNoOp(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	_, err = cache.Focus(ctx, 1)
	require.NoError(t, err)

	push := roster.Push{HeroID: 1, Outcome: "Onward.", ExperienceDelta: 5, TxHash: common.HexToHash("0x03")}

	_, err = cache.ApplyPush(ctx, push)
	require.NoError(t, err)
	callsAfterFirst := reader.calls()

	updated, err := cache.ApplyPush(ctx, push)
	require.NoError(t, err)
	require.Nil(t, updated)
	require.Equal(t, callsAfterFirst, reader.calls(), "duplicate push must not trigger a refresh")

	got, err := cache.Focused(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(15), got.Experience, "duplicate push must not double-apply the delta")
}

func TestApplyPushInterleavedReplayIsNoOp(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)
	_, err = cache.Focus(ctx, 1)
	require.NoError(t, err)

	pushA := roster.Push{HeroID: 1, Outcome: "Onward.", ExperienceDelta: 5, TxHash: common.HexToHash("0x0a")}
	pushB := roster.Push{HeroID: 1, Outcome: "Further.", ExperienceDelta: 7, TxHash: common.HexToHash("0x0b")}

	_, err = cache.ApplyPush(ctx, pushA)
	require.NoError(t, err)
	_, err = cache.ApplyPush(ctx, pushB)
	require.NoError(t, err)
	callsAfterB := reader.calls()

	// A redelivery of the first push arriving after the second must still
	// be recognized as already applied.
	updated, err := cache.ApplyPush(ctx, pushA)
	require.NoError(t, err)
	require.Nil(t, updated)
	require.Equal(t, callsAfterB, reader.calls(), "replay must not trigger a refresh")

	got, err := cache.Focused(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(22), got.Experience, "replay must not re-apply the delta")
	require.Equal(t, "Further.", got.Story)
}

func TestApplyPushTriggersRosterRefresh(t *testing.T) {
	reader := &fakeReader{
		ids: []uint64{1},
		heroes: map[uint64]roster.Hero{
			1: {ID: 1, Name: "Aria", Experience: 10},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	_, err := cache.RefreshOwned(ctx, owner)
	require.NoError(t, err)

	// A hero minted since the last refresh shows up after the push lands.
	reader.mu.Lock()
	reader.ids = []uint64{1, 2}
	reader.heroes[2] = roster.Hero{ID: 2, Name: "Borin", Experience: 0}
	reader.mu.Unlock()

	_, err = cache.ApplyPush(ctx, roster.Push{HeroID: 1, Outcome: "Onward.", TxHash: common.HexToHash("0x04")})
	require.NoError(t, err)

	heroes, err := cache.Heroes(ctx)
	require.NoError(t, err)
	require.Len(t, heroes, 2)
}

func TestRefreshListingsProbesAndJoins(t *testing.T) {
	reader := &fakeReader{
		heroes: map[uint64]roster.Hero{
			3: {ID: 3, Name: "Cyra", Experience: 30, Status: roster.HeroStatusActive},
			7: {ID: 7, Name: "Garrick", Experience: 70, Status: roster.HeroStatusActive},
		},
		listings: map[uint64]roster.Listing{
			3: {HeroID: 3, Seller: owner, PriceWei: big.NewInt(1e18), Active: true},
			5: {HeroID: 5, Seller: owner, PriceWei: big.NewInt(2e18), Active: true},
			7: {HeroID: 7, Seller: owner, PriceWei: big.NewInt(3e18), Active: true},
			9: {HeroID: 9, Seller: owner, PriceWei: big.NewInt(0), Active: false},
		},
	}
	cache := newCache(t, reader)

	listings, err := cache.RefreshListings(context.Background())
	require.NoError(t, err)

	// Hero 5 is listed but unreadable, so it is dropped. Hero 9 is inactive.
	require.Len(t, listings, 2)
	require.Equal(t, uint64(3), listings[0].HeroID)
	require.Equal(t, "Cyra", listings[0].Name)
	require.Equal(t, uint64(7), listings[1].HeroID)
	require.Equal(t, "Garrick", listings[1].Name)
}

func TestRefreshListingsReplacesSnapshot(t *testing.T) {
	reader := &fakeReader{
		heroes: map[uint64]roster.Hero{
			3: {ID: 3, Name: "Cyra"},
		},
		listings: map[uint64]roster.Listing{
			3: {HeroID: 3, Seller: owner, PriceWei: big.NewInt(1e18), Active: true},
		},
	}
	cache := newCache(t, reader)
	ctx := context.Background()

	listings, err := cache.RefreshListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)

	reader.mu.Lock()
	delete(reader.listings, 3)
	reader.mu.Unlock()

	listings, err = cache.RefreshListings(ctx)
	require.NoError(t, err)
	require.Empty(t, listings)

	cached, err := cache.Listings(ctx)
	require.NoError(t, err)
	require.Empty(t, cached)
}
