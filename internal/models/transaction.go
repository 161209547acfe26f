package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeFaucet TransactionType = "faucet"
)

// Transaction is a value transfer submitted through the wallet.
type Transaction struct {
	Hash      string          `json:"hash"`
	Type      TransactionType `json:"type"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Value     decimal.Decimal `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}
