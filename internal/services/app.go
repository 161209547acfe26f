package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinflip-backend/internal/models"
	"coinflip-backend/internal/observability"
)

// RoundStore keeps the round history of open play sessions.
type RoundStore interface {
	SaveRound(ctx context.Context, round *models.Round) error
	GetRounds(ctx context.Context, clientID string, limit int64) ([]*models.Round, error)
	ClearRounds(ctx context.Context, clientID string) error
}

type AppOptions struct {
	TargetChainID  int64
	DefaultBet     decimal.Decimal
	FaucetAmount   decimal.Decimal
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

func (o *AppOptions) withDefaults() {
	if o.TargetChainID == 0 {
		o.TargetChainID = models.SepoliaChainID
	}
	if !o.DefaultBet.IsPositive() {
		o.DefaultBet = decimal.RequireFromString("0.0001")
	}
	if !o.FaucetAmount.IsPositive() {
		o.FaucetAmount = decimal.NewFromInt(1)
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 2 * time.Minute
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
}

type AppDeps struct {
	Wallet      Wallet
	Flipper     Flipper
	Rounds      RoundStore
	Broadcaster Broadcaster
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// State is a snapshot of a play session as shown to the player.
type State struct {
	ClientID   string           `json:"client_id"`
	Session    models.Session   `json:"session"`
	Wager      models.Wager     `json:"wager"`
	Network    *models.Network  `json:"network,omitempty"`
	Balance    *decimal.Decimal `json:"balance"` // nil while the balance must not be shown
	Advisory   string           `json:"advisory,omitempty"`
	DefaultBet decimal.Decimal  `json:"default_bet"`
	CanBet     bool             `json:"can_bet"`
}

// App is one play session: a session manager, a wager engine and the cached
// balance, all mutated from a single dispatcher goroutine. Wallet calls run on
// the caller's goroutine and hand their result back as one action.
type App struct {
	id      string
	opts    AppOptions
	wallet  Wallet
	rounds  RoundStore
	bcast   Broadcaster
	metrics *observability.Metrics
	logger  *zap.Logger

	actions    chan action
	done       chan struct{}
	closeOnce  sync.Once
	lastActive atomic.Int64

	// Owned by the dispatcher.
	sessions   *SessionManager
	engine     *WagerEngine
	balance    decimal.Decimal
	network    *models.Network
	advisory   string
	refreshSeq uint64
}

func NewApp(clientID string, opts AppOptions, deps AppDeps) *App {
	opts.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("client_id", clientID))

	a := &App{
		id:       clientID,
		opts:     opts,
		wallet:   deps.Wallet,
		rounds:   deps.Rounds,
		bcast:    deps.Broadcaster,
		metrics:  deps.Metrics,
		logger:   logger,
		actions:  make(chan action),
		done:     make(chan struct{}),
		sessions: NewSessionManager(deps.Wallet, logger),
		engine:   NewWagerEngine(deps.Flipper),
	}
	a.Touch()
	a.metrics.SessionOpened()

	go a.run()

	return a
}

func (a *App) ID() string {
	return a.id
}

func (a *App) LastActive() time.Time {
	return time.Unix(0, a.lastActive.Load())
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		close(a.done)
		a.metrics.SessionClosed()
	})
}

type action struct {
	fn      func()
	publish bool
}

func (a *App) run() {
	for {
		select {
		case act := <-a.actions:
			act.fn()
			if act.publish {
				a.publish()
			}
		case <-a.done:
			return
		}
	}
}

// do runs fn on the dispatcher, waits for it and publishes the new state.
func (a *App) do(fn func()) error {
	return a.dispatch(fn, true)
}

// view runs fn on the dispatcher without publishing. fn must not change
// anything a view can see.
func (a *App) view(fn func()) error {
	return a.dispatch(fn, false)
}

func (a *App) dispatch(fn func(), publish bool) error {
	finished := make(chan struct{})
	act := action{
		fn: func() {
			fn()
			close(finished)
		},
		publish: publish,
	}

	select {
	case a.actions <- act:
	case <-a.done:
		return ErrAppClosed
	}

	select {
	case <-finished:
		return nil
	case <-a.done:
		return ErrAppClosed
	}
}

// Touch marks the play session as in use so idle cleanup leaves it alone.
func (a *App) Touch() {
	a.lastActive.Store(time.Now().UnixNano())
}

func (a *App) publish() {
	if a.bcast == nil {
		return
	}
	a.bcast.BroadcastState(a.id, a.snapshot())
}

func (a *App) snapshot() State {
	s := State{
		ClientID:   a.id,
		Session:    a.sessions.Session(),
		Wager:      a.engine.Wager(),
		Advisory:   a.advisory,
		DefaultBet: a.opts.DefaultBet,
	}

	if a.network != nil {
		n := *a.network
		s.Network = &n
		if n.Supported {
			b := a.balance
			s.Balance = &b
			s.CanBet = s.Session.IsConnected() && !s.Wager.HasBet() && !b.LessThan(a.opts.DefaultBet)
		}
	}

	return s
}

func (a *App) State() (State, error) {
	a.Touch()

	var s State
	err := a.view(func() { s = a.snapshot() })
	return s, err
}

// Connect connects the wallet and, when an account is obtained, runs the
// network and balance check for it. Wallet failures are reported through
// the session, not the error.
func (a *App) Connect(ctx context.Context) (State, error) {
	a.Touch()

	var attempt uint64
	var started bool
	if err := a.do(func() { attempt, started = a.sessions.StartConnect() }); err != nil {
		return State{}, err
	}

	if started {
		cctx, cancel := context.WithTimeout(ctx, a.opts.ConnectTimeout)
		account, callErr := a.sessions.RequestAccount(cctx)
		cancel()

		var applied bool
		var session models.Session
		if err := a.do(func() {
			applied = a.sessions.FinishConnect(attempt, account, callErr)
			session = a.sessions.Session()
		}); err != nil {
			return State{}, err
		}

		if applied {
			a.metrics.RecordConnect(session.Status)
			if session.IsConnected() {
				if _, err := a.RefreshNetwork(ctx); err != nil {
					a.logger.Warn("network check after connect failed", zap.Error(err))
				}
			}
		}
	}

	return a.State()
}

// Disconnect resets the play session to idle. The round history goes with it.
func (a *App) Disconnect(ctx context.Context) (State, error) {
	a.Touch()

	err := a.do(func() {
		a.sessions.Disconnect()
		a.engine.Reset()
		a.balance = decimal.Zero
		a.network = nil
		a.advisory = ""
		a.refreshSeq++
	})
	if err != nil {
		return State{}, err
	}

	if a.rounds != nil {
		if err := a.rounds.ClearRounds(ctx, a.id); err != nil {
			a.logger.Warn("failed to clear round history", zap.Error(err))
		}
	}

	a.logger.Info("wallet disconnected")
	return a.State()
}

// RefreshNetwork checks which chain the wallet is on. On the target chain the
// cached balance is replaced by the on-chain balance; elsewhere the balance
// is hidden and a mismatch advisory is raised.
func (a *App) RefreshNetwork(ctx context.Context) (State, error) {
	a.Touch()

	var account string
	var seq uint64
	if err := a.view(func() {
		s := a.sessions.Session()
		if !s.IsConnected() {
			return
		}
		account = s.Account
		a.refreshSeq++
		seq = a.refreshSeq
	}); err != nil {
		return State{}, err
	}
	if account == "" {
		return State{}, ErrNotConnected
	}

	rctx, cancel := context.WithTimeout(ctx, a.opts.RequestTimeout)
	defer cancel()

	network, err := a.wallet.GetNetwork(rctx)
	if err != nil {
		return State{}, fmt.Errorf("get network: %w", err)
	}
	network.Supported = network.ChainID == a.opts.TargetChainID

	var balance decimal.Decimal
	if network.Supported {
		network.Name = models.ChainDisplayName(network.ChainID)

		wei, err := a.wallet.GetBalance(rctx, account)
		if err != nil {
			return State{}, fmt.Errorf("get balance: %w", err)
		}
		balance = models.WeiToEther(wei)
	}
	a.metrics.RecordNetworkCheck(network.Supported)

	if err := a.do(func() {
		if seq != a.refreshSeq || a.sessions.Session().Account != account {
			return
		}
		a.network = &network
		if network.Supported {
			a.balance = balance
			a.advisory = ""
		} else {
			a.balance = decimal.Zero
			a.advisory = models.NetworkMismatchAdvisory(a.opts.TargetChainID)
		}
	}); err != nil {
		return State{}, err
	}

	if !network.Supported {
		a.logger.Warn("wallet on unsupported network",
			zap.Int64("chain_id", network.ChainID),
			zap.Int64("target_chain_id", a.opts.TargetChainID))
	}

	return a.State()
}

// PlaceBet places a bet of amount (the default bet when nil) and resolves it.
// The amount is deducted from the cached balance in the same dispatcher
// action that records the bet. Rejected bets change nothing.
func (a *App) PlaceBet(ctx context.Context, choice models.Choice, amount *decimal.Decimal) (State, error) {
	a.Touch()

	stake := a.opts.DefaultBet
	if amount != nil {
		stake = *amount
	}

	var round *models.Round
	var wager models.Wager
	var betErr error
	if err := a.do(func() {
		s := a.sessions.Session()
		if !s.IsConnected() {
			betErr = ErrNotConnected
			return
		}
		if a.network == nil || !a.network.Supported {
			betErr = ErrBalanceUnavailable
			return
		}

		w, err := a.engine.PlaceBet(choice, stake, a.balance)
		if err != nil {
			betErr = err
			return
		}

		a.balance = a.balance.Sub(stake)
		wager = w
		round = models.NewRound(a.id, s.Account, w, a.balance)
	}); err != nil {
		return State{}, err
	}

	if betErr != nil {
		a.metrics.RecordBetRejected(rejectReason(betErr))
		state, err := a.State()
		if err != nil {
			return State{}, err
		}
		return state, betErr
	}

	a.metrics.RecordBet(wager)
	a.logger.Info("coin flipped",
		zap.String("choice", string(wager.UserChoice)),
		zap.String("amount", wager.WagerAmount.String()),
		zap.String("result", string(wager.Result)),
		zap.String("outcome", string(wager.Outcome())))

	if a.rounds != nil {
		if err := a.rounds.SaveRound(ctx, round); err != nil {
			a.logger.Warn("failed to record round", zap.Error(err))
		}
	}

	return a.State()
}

// Reset clears the current round so a new bet can be placed.
func (a *App) Reset() (State, error) {
	a.Touch()

	if err := a.do(func() { a.engine.Reset() }); err != nil {
		return State{}, err
	}
	return a.State()
}

// RequestFunds asks the wallet for a self-transfer of the faucet amount and
// refreshes the balance. This stands in for a real faucet.
func (a *App) RequestFunds(ctx context.Context) (*models.Transaction, State, error) {
	a.Touch()

	var account string
	if err := a.view(func() {
		if s := a.sessions.Session(); s.IsConnected() {
			account = s.Account
		}
	}); err != nil {
		return nil, State{}, err
	}
	if account == "" {
		return nil, State{}, ErrNotConnected
	}

	rctx, cancel := context.WithTimeout(ctx, a.opts.RequestTimeout)
	hash, err := a.wallet.SendTransaction(rctx, TransferRequest{
		From:  account,
		To:    account,
		Value: models.EtherToWei(a.opts.FaucetAmount),
	})
	cancel()

	a.metrics.RecordFundRequest(err)
	if err != nil {
		a.logger.Error("failed to get free coins", zap.Error(err))
		return nil, State{}, fmt.Errorf("send transaction: %w", err)
	}

	tx := &models.Transaction{
		Hash:      hash,
		Type:      models.TransactionTypeFaucet,
		From:      account,
		To:        account,
		Value:     a.opts.FaucetAmount,
		CreatedAt: time.Now(),
	}
	a.logger.Info("requested free coins", zap.String("tx_hash", hash))

	state, err := a.RefreshNetwork(ctx)
	if err != nil {
		if errors.Is(err, ErrAppClosed) {
			return tx, State{}, err
		}
		a.logger.Warn("balance refresh after funding failed", zap.Error(err))
		state, err = a.State()
	}

	return tx, state, err
}

func (a *App) History(ctx context.Context, limit int64) ([]*models.Round, error) {
	a.Touch()

	if a.rounds == nil {
		return []*models.Round{}, nil
	}
	return a.rounds.GetRounds(ctx, a.id, limit)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrBalanceUnavailable):
		return "balance_unavailable"
	case errors.Is(err, ErrRoundInProgress):
		return "round_in_progress"
	case errors.Is(err, ErrInvalidBet):
		return "invalid_bet"
	}
	return "other"
}
