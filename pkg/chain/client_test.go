package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeBackend mines every sent transaction immediately.
type fakeBackend struct {
	chainID  *big.Int
	nonce    uint64
	sendErr  error
	status   uint64
	estimate uint64
	sent     []*types.Transaction
}

func newFakeBackend(chainID uint64) *fakeBackend {
	return &fakeBackend{
		chainID:  new(big.Int).SetUint64(chainID),
		nonce:    7,
		status:   types.ReceiptStatusSuccessful,
		estimate: 100_000,
	}
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return b.chainID, nil }
func (b *fakeBackend) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.nonce, nil
}
func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}
func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.estimate, nil
}
func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}
func (b *fakeBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	for _, tx := range b.sent {
		if tx.Hash() == h {
			return &types.Receipt{
				Status:          b.status,
				TxHash:          h,
				ContractAddress: crypto.CreateAddress(common.Address{}, tx.Nonce()),
				BlockNumber:     big.NewInt(5),
				GasUsed:         90_000,
			}, nil
		}
	}
	return nil, ethereum.NotFound
}
func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{1}, nil
}

func testProfile(chainID uint64) config.NetworkProfile {
	return config.NetworkProfile{
		Name:                "local",
		URL:                 "http://127.0.0.1:8545",
		ChainID:             chainID,
		Accounts:            []string{devKey},
		Timeout:             time.Second,
		ConfirmationTimeout: 5 * time.Second,
	}
}

func newTestClient(t *testing.T, b *fakeBackend) *Client {
	s, err := NewSigner(devKey, nil)
	require.NoError(t, err)
	c, err := New(context.Background(), b, testProfile(381660001), s, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewChainIDMismatch(t *testing.T) {
	s, err := NewSigner(devKey, nil)
	require.NoError(t, err)
	_, err = New(context.Background(), newFakeBackend(1), testProfile(381660001), s, nil)
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestClientDeploy(t *testing.T) {
	b := newFakeBackend(381660001)
	c := newTestClient(t, b)
	require.EqualValues(t, 381660001, c.ChainID())

	data := []byte{0x60, 0x00}
	r, err := c.Deploy(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	require.Nil(t, tx.To())
	require.Equal(t, data, tx.Data())
	require.EqualValues(t, 7, tx.Nonce())
	require.EqualValues(t, 120_000, tx.Gas())
	require.Equal(t, 0, tx.ChainId().Cmp(big.NewInt(381660001)))

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	require.Equal(t, c.Address(), sender)

	require.Equal(t, tx.Hash(), r.TxHash)
	require.Equal(t, crypto.CreateAddress(common.Address{}, 7), r.Address)
	require.EqualValues(t, 5, r.BlockNumber)
	require.EqualValues(t, 90_000, r.GasUsed)
	c.Close()
}

func TestClientDeployFailures(t *testing.T) {
	t.Run("send", func(t *testing.T) {
		b := newFakeBackend(381660001)
		b.sendErr = errors.New("nonce too low")
		_, err := newTestClient(t, b).Deploy(context.Background(), []byte{0})
		require.ErrorIs(t, err, ErrNetworkSubmission)
		require.ErrorContains(t, err, "nonce too low")
	})
	t.Run("reverted", func(t *testing.T) {
		b := newFakeBackend(381660001)
		b.status = types.ReceiptStatusFailed
		_, err := newTestClient(t, b).Deploy(context.Background(), []byte{0})
		require.ErrorIs(t, err, ErrNetworkSubmission)
		require.ErrorContains(t, err, "reverted")
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := newFakeBackend(381660001)
		_, err := newTestClient(t, b).Deploy(ctx, []byte{0})
		require.ErrorIs(t, err, ErrNetworkSubmission)
	})
}

func TestDialUnreachable(t *testing.T) {
	p := testProfile(381660001)
	p.URL = "http://127.0.0.1:1"
	_, err := Dial(context.Background(), p, nil, zaptest.NewLogger(t))
	require.ErrorIs(t, err, ErrNetworkSubmission)

	p.Accounts = []string{"bad"}
	_, err = Dial(context.Background(), p, nil, nil)
	require.ErrorIs(t, err, config.ErrConfiguration)
}
