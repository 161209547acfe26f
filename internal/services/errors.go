package services

import "errors"

var (
	// Wallet capability failures. These never escape Connect; they become a
	// failed session carrying a display reason.
	ErrWalletUnavailable = errors.New("wallet is not available")
	ErrUserRejected      = errors.New("request rejected by user")
	ErrNoAccounts        = errors.New("no accounts found")

	ErrNotConnected        = errors.New("wallet is not connected")
	ErrBalanceUnavailable  = errors.New("balance is not available on the current network")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidBet          = errors.New("invalid bet")
	ErrRoundInProgress     = errors.New("round in progress, reset before betting again")
	ErrAppClosed           = errors.New("play session closed")
	ErrTooManySessions     = errors.New("too many open play sessions")
)
