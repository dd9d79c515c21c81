package market

import (
	"context"
	"math/big"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu   sync.Mutex
	sent []*types.Transaction
}

func (b *stubBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (b *stubBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *stubBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(1)}, nil
}

func (b *stubBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x01}, nil
}

func (b *stubBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 1, nil
}

func (b *stubBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *stubBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *stubBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100000, nil
}

func (b *stubBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *stubBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *stubBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}

func (b *stubBackend) sentValues() []*big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	values := make([]*big.Int, 0, len(b.sent))
	for _, tx := range b.sent {
		values = append(values, tx.Value())
	}
	return values
}

func newTestMarket(t *testing.T) (*HeroMarket, *stubBackend) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	require.NoError(t, err)
	opts.Nonce = big.NewInt(1)
	opts.GasPrice = big.NewInt(1)
	opts.GasLimit = 100000

	backend := &stubBackend{}
	m, err := NewHeroMarket(opts, common.HexToAddress("0x95e938152166aB0998c635E096ef16f055cCdb0A"), backend)
	require.NoError(t, err)
	return m, backend
}

func TestBuyHeroDoesNotMutateSharedOpts(t *testing.T) {
	m, backend := newTestMarket(t)
	price := big.NewInt(1e18)

	tx, err := m.BuyHero(big.NewInt(3), price)
	require.NoError(t, err)
	require.Equal(t, 0, price.Cmp(tx.Value()))
	require.Nil(t, m.transactOpts.Value, "shared opts must stay untouched")

	// A nonpayable call after the buy must carry no value.
	tx, err = m.ListHero(big.NewInt(4), big.NewInt(2e18))
	require.NoError(t, err)
	require.Equal(t, 0, tx.Value().Sign())

	values := backend.sentValues()
	require.Len(t, values, 2)
	require.Equal(t, 0, price.Cmp(values[0]))
}

func TestBuyHeroConcurrentValuesStayIsolated(t *testing.T) {
	m, backend := newTestMarket(t)
	prices := []*big.Int{big.NewInt(1e18), big.NewInt(2e18)}

	var wg sync.WaitGroup
	for i, price := range prices {
		wg.Add(1)
		go func(id int64, price *big.Int) {
			defer wg.Done()
			tx, err := m.BuyHero(big.NewInt(id), price)
			if err != nil {
				t.Error(err)
				return
			}
			if price.Cmp(tx.Value()) != 0 {
				t.Errorf("transaction value %s does not match price %s", tx.Value(), price)
			}
		}(int64(i+1), price)
	}
	wg.Wait()

	total := new(big.Int)
	for _, v := range backend.sentValues() {
		total.Add(total, v)
	}
	require.Equal(t, 0, total.Cmp(big.NewInt(3e18)), "each buy must carry exactly its own price")
	require.Nil(t, m.transactOpts.Value)
}
