package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type GameType string

const (
	GameTypeCoinFlip GameType = "coinflip"
)

// Choice is a side of the coin. The zero value means no side was picked.
type Choice string

const (
	ChoiceNone  Choice = ""
	ChoiceHeads Choice = "heads"
	ChoiceTails Choice = "tails"
)

func (c Choice) Valid() bool {
	return c == ChoiceHeads || c == ChoiceTails
}

func ParseChoice(s string) (Choice, error) {
	c := Choice(s)
	if !c.Valid() {
		return ChoiceNone, fmt.Errorf("invalid choice: %q", s)
	}
	return c, nil
}

type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
)

type BetRequest struct {
	Choice Choice           `json:"choice" binding:"required"`
	Amount *decimal.Decimal `json:"amount,omitempty"` // ether; defaults to the configured bet
}

func (br *BetRequest) Validate() error {
	if !br.Choice.Valid() {
		return fmt.Errorf("choice must be %q or %q", ChoiceHeads, ChoiceTails)
	}
	if br.Amount != nil && !br.Amount.IsPositive() {
		return fmt.Errorf("bet amount must be greater than zero")
	}
	return nil
}
