package models_test

import (
	"testing"

	"coinflip-backend/internal/models"
)

func connected(t *testing.T, account string) models.Session {
	t.Helper()
	s := models.NewSession().Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	return s.Apply(models.SessionEvent{Type: models.SessionConnectSucceeded, Attempt: s.Attempt, Account: account})
}

func TestSessionConnectLifecycle(t *testing.T) {
	s := models.NewSession()
	if s.Status != models.SessionIdle {
		t.Fatalf("Expected idle, got %s", s.Status)
	}

	s = s.Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	if s.Status != models.SessionConnecting {
		t.Fatalf("Expected connecting, got %s", s.Status)
	}

	s = s.Apply(models.SessionEvent{Type: models.SessionConnectSucceeded, Attempt: s.Attempt, Account: "0xABC"})
	if s.Status != models.SessionConnected || s.Account != "0xABC" || s.Error != "" {
		t.Fatalf("Unexpected session %+v", s)
	}
	if !s.IsConnected() {
		t.Error("IsConnected should report true")
	}
}

func TestSessionConnectFailure(t *testing.T) {
	s := models.NewSession().Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	s = s.Apply(models.SessionEvent{Type: models.SessionConnectFailed, Attempt: s.Attempt, Reason: "denied"})

	if s.Status != models.SessionFailed || s.Error != "denied" || s.Account != "" {
		t.Fatalf("Unexpected session %+v", s)
	}

	// Failed is re-enterable.
	s = s.Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	if s.Status != models.SessionConnecting || s.Error != "" {
		t.Fatalf("Expected a fresh connect attempt, got %+v", s)
	}
}

func TestSessionEmptyAccountFails(t *testing.T) {
	s := models.NewSession().Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	s = s.Apply(models.SessionEvent{Type: models.SessionConnectSucceeded, Attempt: s.Attempt})

	if s.Status != models.SessionFailed || s.Error != models.ReasonNoAccounts {
		t.Fatalf("Unexpected session %+v", s)
	}
}

func TestSessionDisconnectFromAnyState(t *testing.T) {
	connecting := models.NewSession().Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	failed := connecting.Apply(models.SessionEvent{Type: models.SessionConnectFailed, Attempt: connecting.Attempt})

	states := map[string]models.Session{
		"idle":       models.NewSession(),
		"connecting": connecting,
		"connected":  connected(t, "0xABC"),
		"failed":     failed,
	}

	for name, s := range states {
		got := s.Apply(models.SessionEvent{Type: models.SessionDisconnected})
		if got.Status != models.SessionIdle || got.Account != "" || got.Error != "" {
			t.Errorf("%s: expected idle, got %+v", name, got)
		}
	}
}

func TestSessionDropsStaleCompletion(t *testing.T) {
	s := models.NewSession().Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	stale := s.Attempt

	s = s.Apply(models.SessionEvent{Type: models.SessionDisconnected})
	got := s.Apply(models.SessionEvent{Type: models.SessionConnectSucceeded, Attempt: stale, Account: "0xABC"})
	if got.Status != models.SessionIdle {
		t.Fatalf("completion after disconnect must be dropped, got %+v", got)
	}

	s = s.Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	got = s.Apply(models.SessionEvent{Type: models.SessionConnectFailed, Attempt: stale, Reason: "old"})
	if got.Status != models.SessionConnecting {
		t.Fatalf("completion of an older attempt must be dropped, got %+v", got)
	}
}

func TestSessionConnectIgnoredWhileBusy(t *testing.T) {
	s := connected(t, "0xABC")
	if got := s.Apply(models.SessionEvent{Type: models.SessionConnectRequested}); got != s {
		t.Errorf("connect while connected should be a no-op, got %+v", got)
	}

	c := models.NewSession().Apply(models.SessionEvent{Type: models.SessionConnectRequested})
	if got := c.Apply(models.SessionEvent{Type: models.SessionConnectRequested}); got != c {
		t.Errorf("connect while connecting should be a no-op, got %+v", got)
	}
}
