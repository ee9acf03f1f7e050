/*
Package chain contains the network client used to submit contract
deployments to EVM networks.
*/
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
	"go.uber.org/zap"
)

// ErrNetworkSubmission wraps any RPC or transaction failure.
var ErrNetworkSubmission = errors.New("network submission failed")

// gasBufferPercent is added to the estimated gas limit.
const gasBufferPercent = 20

// Backend is the part of the node API the client uses. ethclient.Client
// implements it, as well as the simulated backend client.
type Backend interface {
	bind.DeployBackend
	ethereum.ChainIDReader
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.TransactionSender
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Receipt describes a successful contract deployment.
type Receipt struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Client deploys contracts to a single network from a single account.
type Client struct {
	backend Backend
	closer  func()
	profile config.NetworkProfile
	chainID *big.Int
	signer  *Signer
	log     *zap.Logger
}

// Dial connects to the network, checks that it has the expected chain id
// and prepares the signer from the first profile account.
func Dial(ctx context.Context, p config.NetworkProfile, password PasswordFunc, log *zap.Logger) (*Client, error) {
	if len(p.Accounts) == 0 {
		return nil, fmt.Errorf("%w: network %s has no accounts", config.ErrConfiguration, p.Name)
	}
	signer, err := NewSigner(p.Accounts[0], password)
	if err != nil {
		return nil, err
	}
	dctx, cancel := rpcContext(ctx, p)
	defer cancel()
	ec, err := ethclient.DialContext(dctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: can't connect to %s: %v", ErrNetworkSubmission, p.Name, err)
	}
	c, err := New(ctx, ec, p, signer, log)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	return c, nil
}

// New creates a client using the given backend.
func New(ctx context.Context, b Backend, p config.NetworkProfile, signer *Signer, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cctx, cancel := rpcContext(ctx, p)
	defer cancel()
	id, err := b.ChainID(cctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get chain id of %s: %v", ErrNetworkSubmission, p.Name, err)
	}
	if !id.IsUint64() || id.Uint64() != p.ChainID {
		return nil, fmt.Errorf("%w: network %s has chain id %s, expected %d", config.ErrConfiguration, p.Name, id, p.ChainID)
	}
	return &Client{
		backend: b,
		profile: p,
		chainID: id,
		signer:  signer,
		log:     log.With(zap.String("network", p.Name)),
	}, nil
}

func rpcContext(ctx context.Context, p config.NetworkProfile) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.Timeout)
}

// ChainID returns the network chain id.
func (c *Client) ChainID() uint64 {
	return c.chainID.Uint64()
}

// Address returns the deployer account address.
func (c *Client) Address() common.Address {
	return c.signer.Address()
}

// Deploy submits a contract creation transaction with the given creation
// data and waits for it to be mined.
func (c *Client) Deploy(ctx context.Context, data []byte) (Receipt, error) {
	var res Receipt
	from := c.signer.Address()

	rctx, cancel := rpcContext(ctx, c.profile)
	defer cancel()
	nonce, err := c.backend.PendingNonceAt(rctx, from)
	if err != nil {
		return res, fmt.Errorf("%w: get nonce: %v", ErrNetworkSubmission, err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(rctx)
	if err != nil {
		return res, fmt.Errorf("%w: get gas price: %v", ErrNetworkSubmission, err)
	}
	gasLimit, err := c.backend.EstimateGas(rctx, ethereum.CallMsg{
		From:     from,
		GasPrice: gasPrice,
		Value:    big.NewInt(0),
		Data:     data,
	})
	if err != nil {
		return res, fmt.Errorf("%w: estimate gas: %v", ErrNetworkSubmission, err)
	}
	gasLimit = gasLimit * (100 + gasBufferPercent) / 100

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := c.signer.SignTx(tx, c.chainID)
	if err != nil {
		return res, fmt.Errorf("%w: sign transaction: %v", ErrNetworkSubmission, err)
	}
	if err := c.backend.SendTransaction(rctx, signed); err != nil {
		return res, fmt.Errorf("%w: send transaction: %v", ErrNetworkSubmission, err)
	}
	c.log.Info("deployment transaction sent",
		zap.Stringer("tx", signed.Hash()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit))

	wctx := ctx
	if c.profile.ConfirmationTimeout > 0 {
		var wcancel context.CancelFunc
		wctx, wcancel = context.WithTimeout(ctx, c.profile.ConfirmationTimeout)
		defer wcancel()
	}
	receipt, err := bind.WaitMined(wctx, c.backend, signed)
	if err != nil {
		return res, fmt.Errorf("%w: wait for %s: %v", ErrNetworkSubmission, signed.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return res, fmt.Errorf("%w: transaction %s reverted", ErrNetworkSubmission, signed.Hash())
	}
	res = Receipt{
		Address: receipt.ContractAddress,
		TxHash:  signed.Hash(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res, nil
}

// Close releases the connection.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}
