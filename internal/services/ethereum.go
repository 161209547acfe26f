package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"coinflip-backend/internal/models"
	"coinflip-backend/internal/observability"
)

// JSON-RPC and EIP-1193 error codes.
const (
	codeMethodNotFound = -32601
	codeUserRejected   = 4001
	codeUnauthorized   = 4100
)

// EthereumWallet talks to an Ethereum JSON-RPC endpoint that manages
// accounts itself, e.g. a dev node with unlocked accounts or Clef.
type EthereumWallet struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	metrics *observability.Metrics
}

func DialEthereumWallet(ctx context.Context, rawURL string, metrics *observability.Metrics) (*EthereumWallet, error) {
	client, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %v", rawURL, ErrWalletUnavailable, err)
	}
	return NewEthereumWallet(client, metrics), nil
}

func NewEthereumWallet(client *rpc.Client, metrics *observability.Metrics) *EthereumWallet {
	return &EthereumWallet{
		rpc:     client,
		eth:     ethclient.NewClient(client),
		metrics: metrics,
	}
}

func (w *EthereumWallet) RequestPermissions(ctx context.Context) error {
	defer w.observe("wallet_requestPermissions", time.Now())

	var granted json.RawMessage
	err := w.rpc.CallContext(ctx, &granted, "wallet_requestPermissions",
		map[string]struct{}{"eth_accounts": {}})
	if isMethodNotFound(err) {
		return nil
	}
	return w.mapError("wallet_requestPermissions", err)
}

func (w *EthereumWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	defer w.observe("eth_requestAccounts", time.Now())

	var accounts []string
	err := w.rpc.CallContext(ctx, &accounts, "eth_requestAccounts")
	if isMethodNotFound(err) {
		err = w.rpc.CallContext(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		return nil, w.mapError("eth_requestAccounts", err)
	}
	return accounts, nil
}

func (w *EthereumWallet) GetNetwork(ctx context.Context) (models.Network, error) {
	defer w.observe("eth_chainId", time.Now())

	id, err := w.eth.ChainID(ctx)
	if err != nil {
		return models.Network{}, w.mapError("eth_chainId", err)
	}
	if !id.IsInt64() {
		return models.Network{}, fmt.Errorf("chain id %s out of range", id)
	}

	return models.Network{
		ChainID: id.Int64(),
		Name:    models.ChainName(id.Int64()),
	}, nil
}

func (w *EthereumWallet) GetBalance(ctx context.Context, account string) (*big.Int, error) {
	defer w.observe("eth_getBalance", time.Now())

	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid account address %q", account)
	}

	balance, err := w.eth.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, w.mapError("eth_getBalance", err)
	}
	return balance, nil
}

// SendTransaction leaves signing to the endpoint.
func (w *EthereumWallet) SendTransaction(ctx context.Context, req TransferRequest) (string, error) {
	defer w.observe("eth_sendTransaction", time.Now())

	if !common.IsHexAddress(req.From) || !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("invalid transfer addresses %q -> %q", req.From, req.To)
	}
	if req.Value == nil || req.Value.Sign() <= 0 {
		return "", fmt.Errorf("transfer value must be positive")
	}

	args := map[string]any{
		"from":  common.HexToAddress(req.From),
		"to":    common.HexToAddress(req.To),
		"value": (*hexutil.Big)(req.Value),
	}

	var hash common.Hash
	if err := w.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", w.mapError("eth_sendTransaction", err)
	}
	return hash.Hex(), nil
}

func (w *EthereumWallet) Close() {
	w.rpc.Close()
}

func (w *EthereumWallet) observe(method string, start time.Time) {
	w.metrics.ObserveWalletCall(method, time.Since(start).Seconds())
}

func (w *EthereumWallet) mapError(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", method, err)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected, codeUnauthorized:
			return fmt.Errorf("%s: %w", method, ErrUserRejected)
		}
		return fmt.Errorf("%s: %w", method, err)
	}

	// Anything that is not a JSON-RPC reply means the endpoint could not be reached.
	return fmt.Errorf("%s: %w: %v", method, ErrWalletUnavailable, err)
}

func isMethodNotFound(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeMethodNotFound
}
