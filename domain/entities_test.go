package domain

import (
	"testing"
	"time"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		current SessionStatus
		target  SessionStatus
		want    bool
	}{
		{"waiting to completed", SessionWaiting, SessionCompleted, true},
		{"waiting to expired", SessionWaiting, SessionExpired, true},
		{"waiting to failed", SessionWaiting, SessionFailed, true},
		{"completed is terminal", SessionCompleted, SessionExpired, false},
		{"expired is terminal", SessionExpired, SessionCompleted, false},
		{"failed is terminal", SessionFailed, SessionWaiting, false},
		{"no self transition", SessionWaiting, SessionWaiting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransitionTo(tt.current, tt.target); got != tt.want {
				t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	if SessionWaiting.IsTerminal() {
		t.Error("waiting must not be terminal")
	}
	for _, s := range []SessionStatus{SessionCompleted, SessionExpired, SessionFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestRentalSession_Expired(t *testing.T) {
	now := time.Now()
	session := &RentalSession{ExpiresAt: now.Add(time.Minute)}

	if session.Expired(now) {
		t.Error("session should not be expired before its TTL")
	}
	if !session.Expired(now.Add(time.Minute)) {
		t.Error("session should be expired exactly at expires_at")
	}
	if !session.Expired(now.Add(2 * time.Minute)) {
		t.Error("session should be expired after its TTL")
	}
}
