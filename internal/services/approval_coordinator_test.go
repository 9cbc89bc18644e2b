package services

import (
	"context"
	"testing"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/internal/repositories/memory"
	"github.com/mroshb/scrim_bot/pkg/errors"
)

// pairUp submits two compatible requests and returns the second result.
func pairUp(t *testing.T, h *harness, captainA, captainB int64) *Result {
	t.Helper()
	h.submit(t, captainA, "7PM")
	res := h.submit(t, captainB, "7PM")
	if res.Kind != ResultMatched {
		t.Fatalf("Submit() kind = %s, want %s", res.Kind, ResultMatched)
	}
	return res
}

func TestRespond_BothApprove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paired := pairUp(t, h, 1, 2)
	matchID := paired.Match.ID

	res, err := h.service.RespondToMatch(ctx, matchID, 1, true)
	if err != nil {
		t.Fatalf("RespondToMatch() error = %v", err)
	}
	if res.Kind != ResultAwaitingOpponent {
		t.Errorf("first approval kind = %s, want %s", res.Kind, ResultAwaitingOpponent)
	}

	// Approving twice is harmless.
	if res, err = h.service.RespondToMatch(ctx, matchID, 1, true); err != nil || res.Kind != ResultAwaitingOpponent {
		t.Errorf("repeat approval = (%v, %v), want awaiting opponent", res, err)
	}

	h.clock.Advance(time.Minute)
	res, err = h.service.RespondToMatch(ctx, matchID, 2, true)
	if err != nil {
		t.Fatalf("RespondToMatch() error = %v", err)
	}
	if res.Kind != ResultApproved {
		t.Fatalf("second approval kind = %s, want %s", res.Kind, ResultApproved)
	}

	match := h.match(t, matchID)
	if match.Status != models.MatchStatusApproved {
		t.Errorf("match status = %s, want %s", match.Status, models.MatchStatusApproved)
	}
	if !match.Captain1Approved || !match.Captain2Approved {
		t.Error("approved match is missing an approval flag")
	}
	if match.MatchedAt == nil || !match.MatchedAt.Equal(h.clock.Now()) {
		t.Errorf("MatchedAt = %v, want %v", match.MatchedAt, h.clock.Now())
	}
	for _, id := range []uint{match.Request1ID, match.Request2ID} {
		if got := h.request(t, id).Status; got != models.RequestStatusInProgress {
			t.Errorf("request %d status = %s, want %s", id, got, models.RequestStatusInProgress)
		}
	}
}

func TestRespond_DeclineBlocksPairAndThirdCaptainPairs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paired := pairUp(t, h, 1, 2)
	matchID := paired.Match.ID

	res, err := h.service.RespondToMatch(ctx, matchID, 2, false)
	if err != nil {
		t.Fatalf("RespondToMatch() error = %v", err)
	}
	if res.Kind != ResultDeclined {
		t.Fatalf("decline kind = %s, want %s", res.Kind, ResultDeclined)
	}

	match := h.match(t, matchID)
	if match.Status != models.MatchStatusDeclined {
		t.Errorf("match status = %s, want %s", match.Status, models.MatchStatusDeclined)
	}
	if match.DeclinedBy == nil || *match.DeclinedBy != 2 {
		t.Errorf("DeclinedBy = %v, want 2", match.DeclinedBy)
	}
	for _, id := range []uint{match.Request1ID, match.Request2ID} {
		if got := h.request(t, id).Status; got != models.RequestStatusPending {
			t.Errorf("request %d status = %s, want %s", id, got, models.RequestStatusPending)
		}
	}

	blocked, err := h.guard.IsBlocked(ctx, 1, 2)
	if err != nil || !blocked {
		t.Fatalf("IsBlocked(1, 2) = (%v, %v), want true", blocked, err)
	}

	third := h.submit(t, 3, "7PM")
	if third.Kind != ResultMatched || third.OpponentCaptainID != 1 {
		t.Errorf("third captain paired with %d (%s), want 1", third.OpponentCaptainID, third.Kind)
	}

	h.assertAtMostOneActiveMatch(t)
}

func TestRespond_DeclineLeavesMatchPendingWhenBlockFails(t *testing.T) {
	var flaky *flakyAvoidStore
	h := newHarnessWithAvoidStore(t, func(s *memory.Store) AvoidStore {
		flaky = &flakyAvoidStore{Store: s}
		return flaky
	})
	ctx := context.Background()
	paired := pairUp(t, h, 1, 2)
	matchID := paired.Match.ID

	flaky.setFailing(true)
	if _, err := h.service.RespondToMatch(ctx, matchID, 2, false); !errors.Is(err, errors.ErrCodePersistence) {
		t.Fatalf("RespondToMatch() error = %v, want %s", err, errors.ErrCodePersistence)
	}
	if got := h.match(t, matchID).Status; got != models.MatchStatusPendingApproval {
		t.Fatalf("match status after failed decline = %s, want %s", got, models.MatchStatusPendingApproval)
	}

	// The captain can simply decline again once the store recovers.
	flaky.setFailing(false)
	res, err := h.service.RespondToMatch(ctx, matchID, 2, false)
	if err != nil {
		t.Fatalf("RespondToMatch() retry error = %v", err)
	}
	if res.Kind != ResultDeclined {
		t.Errorf("retry kind = %s, want %s", res.Kind, ResultDeclined)
	}
	match := h.match(t, matchID)
	for _, id := range []uint{match.Request1ID, match.Request2ID} {
		if got := h.request(t, id).Status; got != models.RequestStatusPending {
			t.Errorf("request %d status = %s, want %s", id, got, models.RequestStatusPending)
		}
	}
}

func TestRespond_DeclineExpiresLapsedRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.submit(t, 1, "7PM")
	h.clock.Advance(DefaultRequestTTL - 5*time.Minute)
	paired := h.submit(t, 2, "7PM")
	if paired.Kind != ResultMatched || paired.OpponentCaptainID != 1 {
		t.Fatalf("Submit() = %s vs %d, want matched vs 1", paired.Kind, paired.OpponentCaptainID)
	}

	// Captain 1's request lapses while the match waits for approval.
	h.clock.Advance(10 * time.Minute)
	third := h.submit(t, 3, "7PM")
	if third.Kind != ResultQueued {
		t.Fatalf("third Submit() kind = %s, want %s", third.Kind, ResultQueued)
	}

	if _, err := h.service.RespondToMatch(ctx, paired.Match.ID, 2, false); err != nil {
		t.Fatalf("RespondToMatch() error = %v", err)
	}

	tests := []struct {
		name      string
		requestID uint
		want      string
	}{
		{name: "lapsed request", requestID: first.Request.ID, want: models.RequestStatusExpired},
		{name: "decliner rematched", requestID: paired.Request.ID, want: models.RequestStatusMatched},
		{name: "queued captain", requestID: third.Request.ID, want: models.RequestStatusMatched},
	}
	for _, tt := range tests {
		if got := h.request(t, tt.requestID).Status; got != tt.want {
			t.Errorf("%s: status = %s, want %s", tt.name, got, tt.want)
		}
	}

	match, err := h.store.GetActiveMatchByRequest(ctx, third.Request.ID)
	if err != nil {
		t.Fatalf("GetActiveMatchByRequest() error = %v", err)
	}
	if match.OpponentOf(3) != 2 {
		t.Errorf("OpponentOf(3) = %d, want 2", match.OpponentOf(3))
	}
	h.assertAtMostOneActiveMatch(t)
}

func TestRespond_CooldownExpiresAfter24h(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paired := pairUp(t, h, 1, 2)

	if _, err := h.service.RespondToMatch(ctx, paired.Match.ID, 1, false); err != nil {
		t.Fatalf("RespondToMatch() error = %v", err)
	}

	h.clock.Advance(23 * time.Hour)
	if blocked, _ := h.guard.IsBlocked(ctx, 2, 1); !blocked {
		t.Error("IsBlocked() = false inside the cooldown, want true")
	}

	h.clock.Advance(2 * time.Hour)
	if blocked, _ := h.guard.IsBlocked(ctx, 2, 1); blocked {
		t.Error("IsBlocked() = true after the cooldown, want false")
	}
}

func TestRespond_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paired := pairUp(t, h, 1, 2)

	approved := paired.Match.ID
	for _, captain := range []int64{1, 2} {
		if _, err := h.service.RespondToMatch(ctx, approved, captain, true); err != nil {
			t.Fatalf("RespondToMatch() error = %v", err)
		}
	}

	tests := []struct {
		name     string
		matchID  uint
		captain  int64
		approve  bool
		wantCode string
	}{
		{"outsider", approved, 99, true, errors.ErrCodeForbidden},
		{"terminal match approve", approved, 1, true, errors.ErrCodeConflict},
		{"terminal match decline", approved, 2, false, errors.ErrCodeConflict},
		{"unknown match", 404, 1, true, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.RespondToMatch(ctx, tt.matchID, tt.captain, tt.approve)
			if got := errors.CodeOf(err); got != tt.wantCode {
				t.Errorf("RespondToMatch() code = %q, want %q (err = %v)", got, tt.wantCode, err)
			}
		})
	}

	if got := h.match(t, approved).Status; got != models.MatchStatusApproved {
		t.Errorf("rejected responses changed status to %s", got)
	}
}

func TestAdvance_MapBanTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paired := pairUp(t, h, 1, 2)
	matchID := paired.Match.ID

	if _, err := h.service.AdvanceMatch(ctx, matchID, models.MatchStatusApproved, models.MatchStatusChatActive); !errors.Is(err, errors.ErrCodeConflict) {
		t.Fatalf("AdvanceMatch() before approval error = %v, want conflict", err)
	}

	for _, captain := range []int64{1, 2} {
		if _, err := h.service.RespondToMatch(ctx, matchID, captain, true); err != nil {
			t.Fatalf("RespondToMatch() error = %v", err)
		}
	}

	steps := []struct {
		from, to string
	}{
		{models.MatchStatusApproved, models.MatchStatusChatActive},
		{models.MatchStatusChatActive, models.MatchStatusMapBanning},
		{models.MatchStatusMapBanning, models.MatchStatusCompleted},
	}
	for _, step := range steps {
		match, err := h.service.AdvanceMatch(ctx, matchID, step.from, step.to)
		if err != nil {
			t.Fatalf("AdvanceMatch(%s -> %s) error = %v", step.from, step.to, err)
		}
		if match.Status != step.to {
			t.Errorf("status = %s, want %s", match.Status, step.to)
		}
	}

	tests := []struct {
		name     string
		matchID  uint
		from, to string
		wantCode string
	}{
		{"stale source", matchID, models.MatchStatusApproved, models.MatchStatusChatActive, errors.ErrCodeConflict},
		{"engine status", matchID, models.MatchStatusCompleted, models.MatchStatusDeclined, errors.ErrCodeValidation},
		{"no-op", matchID, models.MatchStatusCompleted, models.MatchStatusCompleted, errors.ErrCodeValidation},
		{"unknown match", 404, models.MatchStatusApproved, models.MatchStatusChatActive, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.AdvanceMatch(ctx, tt.matchID, tt.from, tt.to)
			if got := errors.CodeOf(err); got != tt.wantCode {
				t.Errorf("AdvanceMatch() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}
