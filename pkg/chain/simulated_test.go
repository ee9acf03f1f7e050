package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// answerInitCode deploys a contract whose runtime code returns 42.
var answerInitCode = hexutil.MustDecode("0x600a600c600039600a6000f3602a60005260206000f3")

func TestDeploySimulated(t *testing.T) {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewSignerFromKey(pk)

	sim := simulated.NewBackend(types.GenesisAlloc{
		signer.Address(): {Balance: new(big.Int).Lsh(big.NewInt(1), 100)},
	})
	t.Cleanup(func() { _ = sim.Close() })

	p := config.NetworkProfile{
		Name:                "sim",
		URL:                 "http://127.0.0.1:8545",
		ChainID:             1337,
		Accounts:            []string{"unused"},
		Timeout:             5 * time.Second,
		ConfirmationTimeout: 30 * time.Second,
	}
	c, err := New(context.Background(), sim.Client(), p, signer, zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan struct{})
	var r Receipt
	go func() {
		defer close(done)
		r, err = c.Deploy(context.Background(), answerInitCode)
	}()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-done:
			break loop
		case <-tick.C:
			sim.Commit()
		}
	}
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(signer.Address(), 0), r.Address)
	require.NotZero(t, r.BlockNumber)

	code, err := sim.Client().CodeAt(context.Background(), r.Address, nil)
	require.NoError(t, err)
	require.Equal(t, hexutil.MustDecode("0x602a60005260206000f3"), code)

	rcpt, err := sim.Client().TransactionReceipt(context.Background(), r.TxHash)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, rcpt.Status)
	require.NotEqual(t, common.Address{}, rcpt.ContractAddress)
}
