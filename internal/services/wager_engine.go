package services

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"coinflip-backend/internal/models"
)

// Flipper is the source of coin flips.
type Flipper interface {
	Flip() models.Choice
}

type FlipperFunc func() models.Choice

func (f FlipperFunc) Flip() models.Choice { return f() }

// RandomFlipper draws heads or tails with equal probability. It is demo grade:
// draws are neither cryptographically secure nor verifiable.
type RandomFlipper struct{}

func (RandomFlipper) Flip() models.Choice {
	if rand.IntN(2) == 0 {
		return models.ChoiceHeads
	}
	return models.ChoiceTails
}

// WagerEngine owns the bet, flip and replay lifecycle of one play session.
// Balance bookkeeping stays with the caller.
type WagerEngine struct {
	flipper Flipper
	wager   models.Wager
}

func NewWagerEngine(flipper Flipper) *WagerEngine {
	if flipper == nil {
		flipper = RandomFlipper{}
	}
	return &WagerEngine{flipper: flipper}
}

func (e *WagerEngine) Wager() models.Wager {
	return e.wager
}

// PlaceBet records the bet and resolves it immediately. On error the wager is
// left untouched.
func (e *WagerEngine) PlaceBet(choice models.Choice, amount, balance decimal.Decimal) (models.Wager, error) {
	if !choice.Valid() {
		return e.wager, fmt.Errorf("%w: choice %q", ErrInvalidBet, choice)
	}
	if !amount.IsPositive() {
		return e.wager, fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	}
	if amount.GreaterThan(balance) {
		return e.wager, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	if e.wager.HasBet() {
		return e.wager, ErrRoundInProgress
	}

	e.wager = e.wager.Apply(models.WagerEvent{
		Type:   models.WagerBetPlaced,
		Choice: choice,
		Amount: amount,
	})

	return e.Resolve(), nil
}

// Resolve flips the coin for the recorded bet. Without a pending bet it does nothing.
func (e *WagerEngine) Resolve() models.Wager {
	if !e.wager.HasBet() || e.wager.Resolved() {
		return e.wager
	}
	e.wager = e.wager.Apply(models.WagerEvent{
		Type:   models.WagerFlipped,
		Result: e.flipper.Flip(),
	})
	return e.wager
}

func (e *WagerEngine) Reset() models.Wager {
	e.wager = e.wager.Apply(models.WagerEvent{Type: models.WagerReset})
	return e.wager
}
