package services_test

import (
	"context"
	"math/big"
	"sync"

	"coinflip-backend/internal/models"
	"coinflip-backend/internal/services"
)

type fakeWallet struct {
	mu sync.Mutex

	permErr     error
	accounts    []string
	accountsErr error
	chainID     int64
	networkErr  error
	balance     *big.Int
	balanceErr  error
	sendErr     error

	// When set, RequestAccounts waits for it to close or for ctx.
	block chan struct{}

	// Wallet methods called, in order.
	calls []string
	sent            []services.TransferRequest
}

func newFakeWallet(accounts ...string) *fakeWallet {
	return &fakeWallet{
		accounts: accounts,
		chainID:  models.SepoliaChainID,
		balance:  big.NewInt(0),
	}
}

func (w *fakeWallet) setAccounts(accounts []string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = accounts
	w.accountsErr = err
}

func (w *fakeWallet) setChain(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = id
}

func (w *fakeWallet) setBalance(wei *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance = new(big.Int).Set(wei)
}

func (w *fakeWallet) RequestPermissions(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "permissions")
	return w.permErr
}

func (w *fakeWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	block := w.block
	w.calls = append(w.calls, "accounts")
	w.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.accountsErr != nil {
		return nil, w.accountsErr
	}
	return append([]string(nil), w.accounts...), nil
}

func (w *fakeWallet) GetNetwork(ctx context.Context) (models.Network, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.networkErr != nil {
		return models.Network{}, w.networkErr
	}
	return models.Network{ChainID: w.chainID, Name: models.ChainName(w.chainID)}, nil
}

func (w *fakeWallet) GetBalance(ctx context.Context, account string) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balanceErr != nil {
		return nil, w.balanceErr
	}
	return new(big.Int).Set(w.balance), nil
}

func (w *fakeWallet) SendTransaction(ctx context.Context, req services.TransferRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sendErr != nil {
		return "", w.sendErr
	}
	w.sent = append(w.sent, req)
	if req.From == req.To {
		// Stand-in for a faucet credit so the refresh has something to show.
		w.balance = new(big.Int).Add(w.balance, req.Value)
	}
	return "0x01", nil
}

type memoryRounds struct {
	mu     sync.Mutex
	rounds map[string][]*models.Round
}

func newMemoryRounds() *memoryRounds {
	return &memoryRounds{rounds: make(map[string][]*models.Round)}
}

func (m *memoryRounds) SaveRound(ctx context.Context, round *models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.ClientID] = append([]*models.Round{round}, m.rounds[round.ClientID]...)
	return nil
}

func (m *memoryRounds) GetRounds(ctx context.Context, clientID string, limit int64) ([]*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rounds := m.rounds[clientID]
	if int64(len(rounds)) > limit {
		rounds = rounds[:limit]
	}
	return append([]*models.Round(nil), rounds...), nil
}

func (m *memoryRounds) ClearRounds(ctx context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rounds, clientID)
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	states []services.State
}

func (b *recordingBroadcaster) BroadcastState(clientID string, state services.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, state)
}

func (b *recordingBroadcaster) last() (services.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		return services.State{}, false
	}
	return b.states[len(b.states)-1], true
}

func fixedFlip(c models.Choice) services.Flipper {
	return services.FlipperFunc(func() models.Choice { return c })
}
