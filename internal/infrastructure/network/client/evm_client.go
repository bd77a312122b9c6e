package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ERC20 ABI subset used for reads and transfers.
const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// Some older tokens (MKR and friends) return symbol as bytes32.
const erc20Bytes32SymbolABI = `[{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}]`

const defaultReceiptPollInterval = time.Second

var (
	parsedERC20ABI         abi.ABI
	parsedBytes32SymbolABI abi.ABI
	parsedERC20Once        sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		parsedBytes32SymbolABI, err = abi.JSON(strings.NewReader(erc20Bytes32SymbolABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse bytes32 symbol ABI: %v", err))
		}
	})
}

// EncodeERC20Transfer packs transfer(to, amount) calldata.
func EncodeERC20Transfer(to string, amount *big.Int) ([]byte, error) {
	initParsedERC20ABI()
	return parsedERC20ABI.Pack("transfer", common.HexToAddress(to), amount)
}

// EVMClient implements the port.BlockchainClient interface for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	rpcCallTimeout time.Duration
	pollInterval   time.Duration
}

var _ port.BlockchainClient = (*EVMClient)(nil)

// NewEVMClient dials the primary RPC of netDef and then the fallbacks, keeping the first
// endpoint that answers eth_chainId with the expected chain id.
func NewEVMClient(netDef entity.NetworkDefinition, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	initParsedERC20ABI()
	rpcURLs := netDef.RPCURLs()
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("network %s has no RPC endpoints configured", netDef.Name)
	}
	var lastErr error

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}

		chainID, err := client.ChainID(ctx)
		cancel()
		if err != nil {
			client.Close()
			lastErr = fmt.Errorf("failed to verify chain id on %s: %w", rpcURL, err)
			continue
		}
		if chainID.Uint64() != netDef.ChainID {
			client.Close()
			lastErr = fmt.Errorf("chain id mismatch on %s: expected %d, got %d", rpcURL, netDef.ChainID, chainID.Uint64())
			continue
		}
		return &EVMClient{
			ethClient:      client,
			netDef:         netDef,
			rpcCallTimeout: rpcCallTimeout,
			pollInterval:   defaultReceiptPollInterval,
		}, nil
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// SetReceiptPollInterval changes how often WaitMined polls for a receipt.
func (c *EVMClient) SetReceiptPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// Backend exposes the underlying ethclient for transaction building.
func (c *EVMClient) Backend() *ethclient.Client {
	return c.ethClient
}

// Close releases the RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}

func (c *EVMClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.rpcCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

// GetNativeBalance fetches the latest native balance of walletAddress.
func (c *EVMClient) GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	balance, err := c.ethClient.BalanceAt(ctx, common.HexToAddress(walletAddress), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance for %s on %s: %w", walletAddress, c.netDef.Name, err)
	}
	return balance, nil
}

// GetTokenBalance calls balanceOf(walletAddress) on tokenAddress.
func (c *EVMClient) GetTokenBalance(ctx context.Context, tokenAddress string, walletAddress string) (*big.Int, error) {
	out, err := c.callView(ctx, tokenAddress, "balanceOf", common.HexToAddress(walletAddress))
	if err != nil {
		return nil, err
	}
	return unpackBalance(out)
}

// TokenSymbol reads symbol(), accepting both string and bytes32 encodings.
func (c *EVMClient) TokenSymbol(ctx context.Context, tokenAddress string) (string, error) {
	out, err := c.callView(ctx, tokenAddress, "symbol")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("symbol() returned no data")
	}
	if unpacked, err := parsedERC20ABI.Unpack("symbol", out); err == nil && len(unpacked) == 1 {
		if s, ok := unpacked[0].(string); ok {
			return s, nil
		}
	}
	unpacked, err := parsedBytes32SymbolABI.Unpack("symbol", out)
	if err != nil || len(unpacked) != 1 {
		return "", fmt.Errorf("failed to decode symbol() result %s", hexutil.Encode(out))
	}
	raw, ok := unpacked[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("unexpected symbol() type %T", unpacked[0])
	}
	return string(bytes.TrimRight(raw[:], "\x00")), nil
}

// TokenDecimals reads decimals().
func (c *EVMClient) TokenDecimals(ctx context.Context, tokenAddress string) (uint8, error) {
	out, err := c.callView(ctx, tokenAddress, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, errors.New("decimals() returned no data")
	}
	unpacked, err := parsedERC20ABI.Unpack("decimals", out)
	if err != nil || len(unpacked) != 1 {
		return 0, fmt.Errorf("failed to decode decimals() result %s", hexutil.Encode(out))
	}
	decimals, ok := unpacked[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals() type %T", unpacked[0])
	}
	return decimals, nil
}

// HasCode reports whether there is contract code at address.
func (c *EVMClient) HasCode(ctx context.Context, address string) (bool, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	code, err := c.ethClient.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return false, fmt.Errorf("eth_getCode for %s: %w", address, err)
	}
	return len(code) > 0, nil
}

// BlockNumber returns the latest block height; used as an RPC health check.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	n, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber on %s: %w", c.netDef.Name, err)
	}
	return n, nil
}

// WaitMined polls for the receipt of txHash until it is available or ctx is done.
// A reverted transaction is an error.
func (c *EVMClient) WaitMined(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		callCtx, cancel := c.callCtx(ctx)
		receipt, err := c.ethClient.TransactionReceipt(callCtx, hash)
		cancel()
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted in block %s", txHash, receipt.BlockNumber)
			}
			return nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			if ctx.Err() != nil {
				return fmt.Errorf("waiting for %s: %w", txHash, ctx.Err())
			}
			// transient RPC failure, keep polling until ctx expires
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetBalances fetches multiple balances using one JSON-RPC batch request.
func (c *EVMClient) GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	if len(requests) == 0 {
		return []entity.BalanceResultItem{}, nil
	}

	batchElems := make([]rpc.BatchElem, len(requests))
	results := make([]entity.BalanceResultItem, len(requests))

	for i, reqItem := range requests {
		results[i] = entity.BalanceResultItem{
			WalletAddress: reqItem.WalletAddress,
			TokenAddress:  reqItem.TokenAddress,
		}

		switch reqItem.Type {
		case entity.NativeBalanceRequest:
			batchElems[i] = rpc.BatchElem{
				Method: "eth_getBalance",
				Args:   []interface{}{common.HexToAddress(reqItem.WalletAddress), "latest"},
				Result: new(hexutil.Big),
			}
		case entity.TokenBalanceRequest:
			callData, err := parsedERC20ABI.Pack("balanceOf", common.HexToAddress(reqItem.WalletAddress))
			if err != nil {
				return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
			}
			callArgs := map[string]interface{}{
				"to":   common.HexToAddress(reqItem.TokenAddress),
				"data": hexutil.Bytes(callData),
			}
			batchElems[i] = rpc.BatchElem{
				Method: "eth_call",
				Args:   []interface{}{callArgs, "latest"},
				Result: new(hexutil.Bytes),
			}
		default:
			return nil, fmt.Errorf("unknown balance request type: %v", reqItem.Type)
		}
	}

	rpcCallCtx, cancel := c.callCtx(ctx)
	defer cancel()

	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batchElems); err != nil {
		return nil, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for i, elem := range batchElems {
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("%s for wallet %s: %w", elem.Method, requests[i].WalletAddress, elem.Error)
			continue
		}

		switch requests[i].Type {
		case entity.NativeBalanceRequest:
			result, ok := elem.Result.(*hexutil.Big)
			if !ok || result == nil {
				results[i].Error = fmt.Errorf("failed to decode native balance for %s", requests[i].WalletAddress)
				continue
			}
			results[i].Balance = new(big.Int).Set((*big.Int)(result))
		case entity.TokenBalanceRequest:
			result, ok := elem.Result.(*hexutil.Bytes)
			if !ok || result == nil {
				results[i].Error = fmt.Errorf("failed to decode token balance for %s", requests[i].WalletAddress)
				continue
			}
			balance, err := unpackBalance(*result)
			if err != nil {
				results[i].Error = err
				continue
			}
			results[i].Balance = balance
		}
	}
	return results, nil
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

func (c *EVMClient) callView(ctx context.Context, contract, method string, args ...interface{}) ([]byte, error) {
	data, err := parsedERC20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	to := common.HexToAddress(contract)

	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	out, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s on %s: %w", method, contract, err)
	}
	return out, nil
}

// unpackBalance decodes a balanceOf return value. Empty data (no contract) counts as zero.
func unpackBalance(out []byte) (*big.Int, error) {
	if len(out) == 0 {
		return big.NewInt(0), nil
	}
	unpacked, err := parsedERC20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result %s: %w", hexutil.Encode(out), err)
	}
	if len(unpacked) == 0 {
		return nil, errors.New("balanceOf unpack returned no data")
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to assert unpacked balanceOf result to *big.Int, got %T", unpacked[0])
	}
	return balance, nil
}
