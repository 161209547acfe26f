package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"coinflip-backend/internal/config"
	"coinflip-backend/internal/handlers"
	"coinflip-backend/internal/models"
	"coinflip-backend/internal/services"
)

const testAccount = "0x00000000000000000000000000000000000000aB"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubWallet struct {
	mu      sync.Mutex
	chainID int64
	balance *big.Int
}

func (w *stubWallet) RequestPermissions(ctx context.Context) error { return nil }

func (w *stubWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{testAccount}, nil
}

func (w *stubWallet) GetNetwork(ctx context.Context) (models.Network, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.Network{ChainID: w.chainID, Name: models.ChainName(w.chainID)}, nil
}

func (w *stubWallet) GetBalance(ctx context.Context, account string) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.balance), nil
}

func (w *stubWallet) SendTransaction(ctx context.Context, req services.TransferRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance.Add(w.balance, req.Value)
	return "0xfeed", nil
}

type testServer struct {
	router   *gin.Engine
	registry *services.Registry
	hub      *handlers.WebSocketHub
	wallet   *stubWallet
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	wallet := &stubWallet{
		chainID: models.SepoliaChainID,
		balance: models.EtherToWei(decimal.RequireFromString("0.0005")),
	}
	hub := handlers.NewWebSocketHub(nil)
	flipper := services.FlipperFunc(func() models.Choice { return models.ChoiceHeads })

	registry := services.NewRegistry(func(clientID string) *services.App {
		return services.NewApp(clientID, services.AppOptions{}, services.AppDeps{
			Wallet:      wallet,
			Flipper:     flipper,
			Broadcaster: hub,
		})
	}, nil)
	t.Cleanup(registry.CloseAll)

	router := handlers.NewRouter(handlers.RouterConfig{
		Registry:   registry,
		Hub:        hub,
		JWTService: services.NewJWTService(&config.Config{JWTSecret: "secret", TokenTTL: time.Hour}),
	})

	return &testServer{router: router, registry: registry, hub: hub, wallet: wallet}
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/auth/token", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("token request failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token    string `json:"token"`
		ClientID string `json:"client_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if resp.Token == "" || resp.ClientID == "" {
		t.Fatalf("incomplete token response: %s", w.Body.String())
	}
	return resp.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type stateResponse struct {
	Error    string         `json:"error"`
	Advisory string         `json:"advisory"`
	State    services.State `json:"state"`
	Result   struct {
		Outcome models.Outcome `json:"outcome"`
	} `json:"result"`
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) stateResponse {
	t.Helper()

	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestCoinFlipFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t)

	w := s.do(t, http.MethodPost, "/api/games/coinflip/bet", token, gin.H{"choice": "heads"})
	if w.Code != http.StatusConflict {
		t.Fatalf("bet before connect: expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/session/connect", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d %s", w.Code, w.Body.String())
	}
	resp := decodeState(t, w)
	if resp.State.Session.Status != models.SessionConnected || resp.State.Session.Account != testAccount {
		t.Fatalf("Expected connected session, got %+v", resp.State.Session)
	}
	if resp.State.Balance == nil || resp.State.Balance.String() != "0.0005" {
		t.Fatalf("Expected balance 0.0005, got %v", resp.State.Balance)
	}

	w = s.do(t, http.MethodPost, "/api/games/coinflip/bet", token, gin.H{"choice": "heads"})
	if w.Code != http.StatusOK {
		t.Fatalf("bet: expected 200, got %d %s", w.Code, w.Body.String())
	}
	resp = decodeState(t, w)
	if resp.Result.Outcome != models.OutcomeWin {
		t.Errorf("Expected a win, got %q", resp.Result.Outcome)
	}
	if resp.State.Balance.String() != "0.0004" {
		t.Errorf("Expected balance 0.0004, got %s", resp.State.Balance)
	}

	w = s.do(t, http.MethodPost, "/api/games/coinflip/bet", token, gin.H{"choice": "tails"})
	if w.Code != http.StatusConflict {
		t.Errorf("second bet: expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/games/coinflip/reset", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", w.Code)
	}
	if resp := decodeState(t, w); !resp.State.Wager.IsEmpty() {
		t.Errorf("Expected an empty wager after reset, got %+v", resp.State.Wager)
	}

	w = s.do(t, http.MethodPost, "/api/games/coinflip/bet", token, gin.H{"choice": "tails", "amount": "1"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversized bet: expected 422, got %d", w.Code)
	}
	resp = decodeState(t, w)
	if resp.Advisory != models.InsufficientBalanceAdvisory {
		t.Errorf("Expected insufficient balance advisory, got %q", resp.Advisory)
	}
	if resp.State.Balance.String() != "0.0004" {
		t.Errorf("rejected bet must not change balance, got %s", resp.State.Balance)
	}

	w = s.do(t, http.MethodGet, "/api/games/history", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("history: expected 200, got %d", w.Code)
	}
}

func TestPlaceBetValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing choice", gin.H{}},
		{"bad choice", gin.H{"choice": "edge"}},
		{"negative amount", gin.H{"choice": "heads", "amount": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/games/coinflip/bet", token, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestNetworkMismatch(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t)

	s.wallet.mu.Lock()
	s.wallet.chainID = models.MainnetChainID
	s.wallet.mu.Unlock()

	s.do(t, http.MethodPost, "/api/session/connect", token, nil)

	w := s.do(t, http.MethodGet, "/api/network", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("network: expected 200, got %d", w.Code)
	}
	resp := decodeState(t, w)
	if resp.State.Balance != nil {
		t.Errorf("balance must be hidden on the wrong network, got %s", resp.State.Balance)
	}
	if resp.State.Advisory != models.NetworkMismatchAdvisory(models.SepoliaChainID) {
		t.Errorf("unexpected advisory %q", resp.State.Advisory)
	}

	w = s.do(t, http.MethodPost, "/api/games/coinflip/bet", token, gin.H{"choice": "heads"})
	if w.Code != http.StatusConflict {
		t.Errorf("bet on wrong network: expected 409, got %d", w.Code)
	}
}

func TestRequestFundsAndDisconnect(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t)

	w := s.do(t, http.MethodPost, "/api/funds", token, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("funds before connect: expected 409, got %d", w.Code)
	}

	s.do(t, http.MethodPost, "/api/session/connect", token, nil)

	w = s.do(t, http.MethodPost, "/api/funds", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("funds: expected 200, got %d %s", w.Code, w.Body.String())
	}
	if resp := decodeState(t, w); resp.State.Balance.String() != "1.0005" {
		t.Errorf("Expected balance 1.0005, got %s", resp.State.Balance)
	}

	w = s.do(t, http.MethodPost, "/api/session/disconnect", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("disconnect: expected 200, got %d", w.Code)
	}
	resp := decodeState(t, w)
	if resp.State.Session.Status != models.SessionIdle || resp.State.Session.Account != "" {
		t.Errorf("Expected idle session, got %+v", resp.State.Session)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/metrics", "", nil); w.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/state", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("state without token: expected 401, got %d", w.Code)
	}
}

func TestWebSocketStateUpdates(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t)

	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg handlers.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if msg.Type != handlers.MessageStateUpdate {
		t.Fatalf("Expected %s, got %s", handlers.MessageStateUpdate, msg.Type)
	}

	if err := conn.WriteJSON(handlers.Message{Type: handlers.MessagePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	for msg.Type != handlers.MessagePong {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read pong: %v", err)
		}
	}

	// The pong proves the socket is registered, so the connect below is pushed.
	s.do(t, http.MethodPost, "/api/session/connect", token, nil)

	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read update: %v", err)
		}
		data, _ := json.Marshal(msg.Data)
		var state services.State
		if err := json.Unmarshal(data, &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if state.Session.Status == models.SessionConnected && state.Balance != nil {
			break
		}
	}
}

func TestIssueTokenSessionCap(t *testing.T) {
	s := newTestServer(t)
	s.registry.SetMaxApps(1)

	s.token(t)

	w := s.do(t, http.MethodPost, "/auth/token", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 once the session cap is reached, got %d", w.Code)
	}
}

func TestOpenWebSocketKeepsSessionAlive(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t)

	if w := s.do(t, http.MethodPost, "/api/session/connect", token, nil); w.Code != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d", w.Code)
	}

	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg handlers.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial state: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := s.registry.CleanupIdle(50 * time.Millisecond); n != 0 {
		t.Fatalf("Expected no session reaped while its socket is open, got %d", n)
	}

	if err := conn.WriteJSON(handlers.Message{Type: handlers.MessageGetState}); err != nil {
		t.Fatalf("write get state: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read state: %v", err)
	}

	data, _ := json.Marshal(msg.Data)
	var state services.State
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Session.Status != models.SessionConnected || state.Session.Account != testAccount {
		t.Errorf("Expected the connected session to survive, got %+v", state.Session)
	}
}
