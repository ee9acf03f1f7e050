package main

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// testNode is a minimal JSON-RPC node mining every transaction at once.
type testNode struct {
	lock     sync.Mutex
	nonce    uint64
	receipts map[common.Hash]map[string]any
	// sent is the number of accepted transactions.
	sent int
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newTestNode(t *testing.T) (*testNode, string) {
	n := &testNode{receipts: make(map[common.Hash]map[string]any)}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv.URL
}

func (n *testNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, rpcErr := n.handle(req)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != "" {
		resp["error"] = map[string]any{"code": -32000, "message": rpcErr}
	} else {
		resp["result"] = res
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *testNode) handle(req rpcRequest) (any, string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	switch req.Method {
	case "eth_chainId":
		return (*hexutil.Big)(big.NewInt(testChainID)), ""
	case "eth_getTransactionCount":
		return hexutil.Uint64(n.nonce), ""
	case "eth_gasPrice":
		return (*hexutil.Big)(big.NewInt(1_000_000_000)), ""
	case "eth_estimateGas":
		return hexutil.Uint64(100_000), ""
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		if err := json.Unmarshal(req.Params[0], &raw); err != nil {
			return nil, err.Error()
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, err.Error()
		}
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			return nil, err.Error()
		}
		n.nonce++
		n.sent++
		n.receipts[tx.Hash()] = map[string]any{
			"type":              hexutil.Uint64(tx.Type()),
			"status":            hexutil.Uint64(types.ReceiptStatusSuccessful),
			"cumulativeGasUsed": hexutil.Uint64(90_000),
			"gasUsed":           hexutil.Uint64(90_000),
			"logsBloom":         types.Bloom{},
			"logs":              []any{},
			"transactionHash":   tx.Hash(),
			"contractAddress":   crypto.CreateAddress(from, tx.Nonce()),
			"blockHash":         common.BigToHash(big.NewInt(int64(n.sent))),
			"blockNumber":       (*hexutil.Big)(big.NewInt(int64(n.sent))),
			"transactionIndex":  hexutil.Uint64(0),
		}
		return tx.Hash(), ""
	case "eth_getTransactionReceipt":
		var h common.Hash
		if err := json.Unmarshal(req.Params[0], &h); err != nil {
			return nil, err.Error()
		}
		if rcpt, ok := n.receipts[h]; ok {
			return rcpt, ""
		}
		return nil, ""
	}
	return nil, "method " + req.Method + " is not supported"
}

func (n *testNode) sentCount() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.sent
}
