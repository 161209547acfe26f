package models

type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionConnecting SessionStatus = "connecting"
	SessionConnected  SessionStatus = "connected"
	SessionFailed     SessionStatus = "failed"
)

// Session is the wallet connection of one play session.
// Account is set if and only if Status is SessionConnected.
type Session struct {
	Account string        `json:"account,omitempty"`
	Status  SessionStatus `json:"status"`
	Error   string        `json:"error,omitempty"`

	// Attempt identifies the current connect attempt so completions that
	// arrive after a disconnect or a newer attempt can be dropped.
	Attempt uint64 `json:"-"`
}

func NewSession() Session {
	return Session{Status: SessionIdle}
}

func (s Session) IsConnected() bool {
	return s.Status == SessionConnected && s.Account != ""
}

type SessionEventType string

const (
	SessionConnectRequested SessionEventType = "connect_requested"
	SessionConnectSucceeded SessionEventType = "connect_succeeded"
	SessionConnectFailed    SessionEventType = "connect_failed"
	SessionDisconnected     SessionEventType = "disconnected"
)

type SessionEvent struct {
	Type    SessionEventType
	Attempt uint64
	Account string
	Reason  string
}

const (
	ReasonNoAccounts    = "No accounts found"
	ReasonConnectFailed = "Connection failed"
)

func (s Session) Apply(ev SessionEvent) Session {
	switch ev.Type {
	case SessionConnectRequested:
		switch s.Status {
		case SessionIdle, SessionFailed, "":
			return Session{Status: SessionConnecting, Attempt: s.Attempt + 1}
		}
		return s
	case SessionConnectSucceeded:
		if s.Status != SessionConnecting || ev.Attempt != s.Attempt {
			return s
		}
		if ev.Account == "" {
			return Session{Status: SessionFailed, Error: ReasonNoAccounts, Attempt: s.Attempt}
		}
		return Session{Status: SessionConnected, Account: ev.Account, Attempt: s.Attempt}
	case SessionConnectFailed:
		if s.Status != SessionConnecting || ev.Attempt != s.Attempt {
			return s
		}
		reason := ev.Reason
		if reason == "" {
			reason = ReasonConnectFailed
		}
		return Session{Status: SessionFailed, Error: reason, Attempt: s.Attempt}
	case SessionDisconnected:
		return Session{Status: SessionIdle, Attempt: s.Attempt}
	}
	return s
}
