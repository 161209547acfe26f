package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round is the record of one resolved coin flip.
type Round struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"client_id"`
	Account      string          `json:"account"`
	GameType     GameType        `json:"game_type"`
	Choice       Choice          `json:"choice"`
	Amount       decimal.Decimal `json:"amount"`
	Result       Choice          `json:"result"`
	Outcome      Outcome         `json:"outcome"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

func NewRound(clientID, account string, w Wager, balanceAfter decimal.Decimal) *Round {
	return &Round{
		ID:           GenerateRoundID(),
		ClientID:     clientID,
		Account:      account,
		GameType:     GameTypeCoinFlip,
		Choice:       w.UserChoice,
		Amount:       w.WagerAmount,
		Result:       w.Result,
		Outcome:      w.Outcome(),
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}
}
