package client

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeNode is a minimal JSON-RPC node over httptest, answering single and batch requests.
type fakeNode struct {
	mu        sync.Mutex
	chainID   uint64
	balances  map[string]*big.Int
	tokens    map[string]*fakeToken
	receipts  map[string]*fakeReceipt
	failFor   map[string]bool // wallet addresses whose eth_getBalance fails
	down      bool
	callCount map[string]int
}

type fakeToken struct {
	symbol        string
	bytes32Symbol bool
	decimals      uint8
	reverts       bool
	balances      map[string]*big.Int
}

type fakeReceipt struct {
	pendingPolls int
	reverted     bool
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newFakeNode(chainID uint64) *fakeNode {
	return &fakeNode{
		chainID:   chainID,
		balances:  map[string]*big.Int{},
		tokens:    map[string]*fakeToken{},
		receipts:  map[string]*fakeReceipt{},
		failFor:   map[string]bool{},
		callCount: map[string]int{},
	}
}

func (n *fakeNode) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(srv.Close)
	return srv
}

func (n *fakeNode) calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.callCount[method]
}

func (n *fakeNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	down := n.down
	n.mu.Unlock()
	if down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []rpcRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resps := make([]map[string]any, 0, len(reqs))
		for _, req := range reqs {
			resps = append(resps, n.respond(req))
		}
		_ = json.NewEncoder(w).Encode(resps)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(n.respond(req))
}

func (n *fakeNode) respond(req rpcRequest) map[string]any {
	result, rerr := n.handle(req.Method, req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	return resp
}

func (n *fakeNode) handle(method string, params []json.RawMessage) (any, *rpcError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callCount[method]++

	switch method {
	case "eth_chainId":
		return hexUint(new(big.Int).SetUint64(n.chainID)), nil
	case "eth_blockNumber":
		return "0x10", nil
	case "eth_getBalance":
		addr := strings.ToLower(stringParam(params, 0))
		if n.failFor[addr] {
			return nil, &rpcError{Code: -32000, Message: "header not found"}
		}
		if b, ok := n.balances[addr]; ok {
			return hexUint(b), nil
		}
		return "0x0", nil
	case "eth_getCode":
		if _, ok := n.tokens[strings.ToLower(stringParam(params, 0))]; ok {
			return "0x6080604052", nil
		}
		return "0x", nil
	case "eth_call":
		return n.handleCall(params)
	case "eth_getTransactionReceipt":
		hash := strings.ToLower(stringParam(params, 0))
		rc, ok := n.receipts[hash]
		if !ok {
			return nil, nil
		}
		if rc.pendingPolls > 0 {
			rc.pendingPolls--
			return nil, nil
		}
		status := "0x1"
		if rc.reverted {
			status = "0x0"
		}
		return map[string]any{
			"type":              "0x2",
			"status":            status,
			"cumulativeGasUsed": "0x5208",
			"gasUsed":           "0x5208",
			"logsBloom":         "0x" + strings.Repeat("00", 256),
			"logs":              []any{},
			"transactionHash":   hash,
			"transactionIndex":  "0x0",
			"blockHash":         "0x" + strings.Repeat("ab", 32),
			"blockNumber":       "0x11",
			"effectiveGasPrice": "0x1",
		}, nil
	default:
		return nil, &rpcError{Code: -32601, Message: "method not found: " + method}
	}
}

func (n *fakeNode) handleCall(params []json.RawMessage) (any, *rpcError) {
	var call map[string]string
	if len(params) == 0 || json.Unmarshal(params[0], &call) != nil {
		return nil, &rpcError{Code: -32602, Message: "bad call object"}
	}
	data := call["input"]
	if data == "" {
		data = call["data"]
	}
	token, ok := n.tokens[strings.ToLower(call["to"])]
	if !ok {
		return "0x", nil
	}
	if token.reverts {
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}
	raw := strings.TrimPrefix(data, "0x")
	if len(raw) < 8 {
		return nil, &rpcError{Code: -32602, Message: "short calldata"}
	}

	switch raw[:8] {
	case "70a08231": // balanceOf(address)
		owner := "0x" + raw[len(raw)-40:]
		if b, ok := token.balances[strings.ToLower(owner)]; ok {
			return word(b), nil
		}
		return word(big.NewInt(0)), nil
	case "313ce567": // decimals()
		return word(big.NewInt(int64(token.decimals))), nil
	case "95d89b41": // symbol()
		if token.bytes32Symbol {
			padded := make([]byte, 32)
			copy(padded, token.symbol)
			return "0x" + hex.EncodeToString(padded), nil
		}
		return encodeString(token.symbol), nil
	default:
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}
}

func stringParam(params []json.RawMessage, i int) string {
	if len(params) <= i {
		return ""
	}
	var s string
	_ = json.Unmarshal(params[i], &s)
	return s
}

func hexUint(v *big.Int) string {
	return fmt.Sprintf("0x%x", v)
}

func word(v *big.Int) string {
	return fmt.Sprintf("0x%064x", v)
}

func encodeString(s string) string {
	padded := make([]byte, (len(s)+31)/32*32)
	copy(padded, s)
	return fmt.Sprintf("0x%064x%064x", 32, len(s)) + hex.EncodeToString(padded)
}
