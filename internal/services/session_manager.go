package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"coinflip-backend/internal/models"
)

// SessionManager owns the wallet connection lifecycle of one play session.
// It is not safe for concurrent use; App drives it from its dispatcher.
type SessionManager struct {
	wallet  Wallet
	session models.Session
	logger  *zap.Logger
}

func NewSessionManager(wallet Wallet, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		wallet:  wallet,
		session: models.NewSession(),
		logger:  logger,
	}
}

func (m *SessionManager) Session() models.Session {
	return m.session
}

// Connect runs a whole connect attempt on the calling goroutine. Wallet
// failures end in SessionFailed and are never returned.
func (m *SessionManager) Connect(ctx context.Context) models.Session {
	attempt, started := m.StartConnect()
	if !started {
		return m.session
	}

	account, err := m.RequestAccount(ctx)
	m.FinishConnect(attempt, account, err)
	return m.session
}

// StartConnect moves Idle or Failed to Connecting. started is false when a
// connection is already pending or established.
func (m *SessionManager) StartConnect() (attempt uint64, started bool) {
	next := m.session.Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	if next.Status != models.SessionConnecting || next.Attempt == m.session.Attempt {
		return m.session.Attempt, false
	}
	m.session = next
	return next.Attempt, true
}

// RequestAccount performs the wallet calls of a connect attempt. It reads no
// session state and may run off the dispatcher.
func (m *SessionManager) RequestAccount(ctx context.Context) (string, error) {
	if m.wallet == nil {
		return "", ErrWalletUnavailable
	}

	// Re-prompting permissions lets a previously granted wallet pick another account.
	if err := m.wallet.RequestPermissions(ctx); err != nil {
		return "", err
	}

	accounts, err := m.wallet.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", ErrNoAccounts
	}

	return accounts[0], nil
}

// FinishConnect applies the completion of attempt. It reports false when the
// completion is stale and was dropped.
func (m *SessionManager) FinishConnect(attempt uint64, account string, err error) bool {
	ev := models.SessionEvent{
		Type:    models.SessionConnectSucceeded,
		Attempt: attempt,
		Account: account,
	}
	if err != nil {
		ev = models.SessionEvent{
			Type:    models.SessionConnectFailed,
			Attempt: attempt,
			Reason:  FailureReason(err),
		}
	}

	next := m.session.Apply(ev)
	if next == m.session {
		m.logger.Debug("dropped stale connect completion", zap.Uint64("attempt", attempt))
		return false
	}
	m.session = next

	if err != nil {
		m.logger.Warn("wallet connect failed", zap.Uint64("attempt", attempt), zap.Error(err))
	} else {
		m.logger.Info("wallet connected", zap.String("account", account))
	}
	return true
}

// Disconnect is a local reset only; the wallet keeps its own grant.
func (m *SessionManager) Disconnect() models.Session {
	m.session = m.session.Apply(models.SessionEvent{Type: models.SessionDisconnected})
	return m.session
}

func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoAccounts):
		return models.ReasonNoAccounts
	case errors.Is(err, ErrWalletUnavailable):
		return "Wallet is not available"
	case errors.Is(err, ErrUserRejected):
		return "Request rejected by user"
	case errors.Is(err, context.DeadlineExceeded):
		return "Connection timed out"
	case errors.Is(err, context.Canceled):
		return "Connection cancelled"
	}
	return err.Error()
}
