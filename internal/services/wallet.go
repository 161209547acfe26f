package services

import (
	"context"
	"math/big"

	"coinflip-backend/internal/models"
)

// Wallet is the external account capability, typically an EIP-1193 provider
// reached over JSON-RPC.
type Wallet interface {
	// RequestPermissions asks the user to (re)grant account access. Wallets
	// without incremental permissions treat it as a no-op.
	RequestPermissions(ctx context.Context) error
	RequestAccounts(ctx context.Context) ([]string, error)
	GetNetwork(ctx context.Context) (models.Network, error)
	// GetBalance reports the balance in wei.
	GetBalance(ctx context.Context, account string) (*big.Int, error)
	SendTransaction(ctx context.Context, req TransferRequest) (string, error)
}

type TransferRequest struct {
	From  string
	To    string
	Value *big.Int // wei
}
