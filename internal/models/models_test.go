package models

import "testing"

func TestDepositRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		wantOK bool
	}{
		{"below minimum", DepositMin - 1, false},
		{"at minimum", DepositMin, true},
		{"at maximum", DepositMax, true},
		{"above maximum", DepositMax + 1, false},
		{"zero", 0, false},
		{"negative", -50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DepositRequest{Amount: tt.amount}
			err := req.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("expected %d to be valid, got %v", tt.amount, err)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("expected %d to be rejected", tt.amount)
			}
		})
	}
}

func TestWithdrawalRequestValidate(t *testing.T) {
	valid := WithdrawalRequest{
		Amount:        100,
		BankAccount:   "123456789",
		IFSCCode:      "ABCD0001234",
		AccountHolder: "Test User",
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	low := valid
	low.Amount = WithdrawalMin - 1
	if err := low.Validate(); err == nil {
		t.Error("expected amount below minimum to be rejected")
	}

	high := valid
	high.Amount = WithdrawalMax + 1
	if err := high.Validate(); err == nil {
		t.Error("expected amount above maximum to be rejected")
	}

	noBank := valid
	noBank.BankAccount = ""
	if err := noBank.Validate(); err == nil {
		t.Error("expected missing bank account to be rejected")
	}

	noHolder := valid
	noHolder.AccountHolder = ""
	if err := noHolder.Validate(); err == nil {
		t.Error("expected missing account holder to be rejected")
	}
}

func TestEmojiForIndex(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < len(playerEmojis); i++ {
		e := EmojiForIndex(i)
		if e == "" {
			t.Fatalf("empty emoji at index %d", i)
		}
		if seen[e] {
			t.Errorf("duplicate emoji %q before the list wraps", e)
		}
		seen[e] = true
	}

	if EmojiForIndex(len(playerEmojis)) != EmojiForIndex(0) {
		t.Error("expected emoji assignment to wrap around")
	}
	if EmojiForIndex(-1) != EmojiForIndex(0) {
		t.Error("expected negative index to clamp to first emoji")
	}
}

func TestRoundHasParticipant(t *testing.T) {
	round := &Round{
		Participants: []Participant{
			{UserID: "u1", Username: "alice", Emoji: EmojiForIndex(0)},
			{UserID: "u2", Username: "bob", Emoji: EmojiForIndex(1)},
		},
	}

	if !round.HasParticipant("u1") {
		t.Error("expected u1 to be a participant")
	}
	if round.HasParticipant("u3") {
		t.Error("did not expect u3 to be a participant")
	}
}

func TestRoundTimer(t *testing.T) {
	round := &Round{Phase: PhaseJoining, JoinTimer: 120, BreakTimer: 15}
	if got := round.Timer(); got != 120 {
		t.Errorf("joining timer = %d, want 120", got)
	}

	round.Phase = PhaseLocked
	if got := round.Timer(); got != 120 {
		t.Errorf("locked timer = %d, want 120", got)
	}

	round.Phase = PhaseBreak
	if got := round.Timer(); got != 15 {
		t.Errorf("break timer = %d, want 15", got)
	}
}

func TestParticipantsRoundTrip(t *testing.T) {
	round := &Round{
		Participants: []Participant{
			{UserID: "u1", Username: "alice", Emoji: "🦁"},
		},
	}
	if err := round.EncodeParticipants(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded := &Round{ParticipantsJSON: round.ParticipantsJSON}
	if err := decoded.DecodeParticipants(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded.Participants) != 1 || decoded.Participants[0].UserID != "u1" {
		t.Errorf("unexpected participants after round trip: %+v", decoded.Participants)
	}

	// A nil slice still encodes as an empty array, never null.
	empty := &Round{}
	if err := empty.EncodeParticipants(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(empty.ParticipantsJSON) != "[]" {
		t.Errorf("empty participants encoded as %s, want []", empty.ParticipantsJSON)
	}
}

func TestNewRoundIDDistinct(t *testing.T) {
	a := NewRoundID()
	b := NewRoundID()
	if a == b {
		t.Errorf("expected distinct round IDs, got %s twice", a)
	}
}
