package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wager is one round of the coin flip. Outcome is never stored; it is derived
// from Result and UserChoice on read.
type Wager struct {
	UserChoice  Choice          `json:"user_choice"`
	WagerAmount decimal.Decimal `json:"wager_amount"`
	Result      Choice          `json:"result"`
}

func (w Wager) Outcome() Outcome {
	if w.Result == ChoiceNone {
		return OutcomeNone
	}
	if w.Result == w.UserChoice {
		return OutcomeWin
	}
	return OutcomeLose
}

func (w Wager) HasBet() bool {
	return w.UserChoice != ChoiceNone
}

func (w Wager) Resolved() bool {
	return w.Result != ChoiceNone
}

func (w Wager) IsEmpty() bool {
	return w.UserChoice == ChoiceNone && w.Result == ChoiceNone && w.WagerAmount.IsZero()
}

func (w Wager) MarshalJSON() ([]byte, error) {
	type wager Wager
	return json.Marshal(struct {
		wager
		Outcome Outcome `json:"outcome"`
	}{wager(w), w.Outcome()})
}

type WagerEventType string

const (
	WagerBetPlaced WagerEventType = "bet_placed"
	WagerFlipped   WagerEventType = "flipped"
	WagerReset     WagerEventType = "reset"
)

type WagerEvent struct {
	Type   WagerEventType
	Choice Choice
	Amount decimal.Decimal
	Result Choice
}

// Apply returns the wager after ev. Events that are not valid in the current
// state return the wager unchanged.
func (w Wager) Apply(ev WagerEvent) Wager {
	switch ev.Type {
	case WagerBetPlaced:
		if !ev.Choice.Valid() || ev.Amount.IsNegative() {
			return w
		}
		return Wager{UserChoice: ev.Choice, WagerAmount: ev.Amount}
	case WagerFlipped:
		if !w.HasBet() || !ev.Result.Valid() {
			return w
		}
		w.Result = ev.Result
		return w
	case WagerReset:
		return Wager{}
	}
	return w
}
