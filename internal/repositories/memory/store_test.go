package memory

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
)

var base = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newRequest(captainID int64, createdAt time.Time) *models.ScrimRequest {
	return &models.ScrimRequest{
		CaptainID:    captainID,
		MatchType:    models.MatchTypeBo3,
		TimeSlot:     "7PM",
		Timezone:     "IST",
		SlotStartUTC: 810,
		SlotMinutes:  60,
		Status:       models.RequestStatusPending,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(2 * time.Hour),
	}
}

func mustCreate(t *testing.T, s *Store, req *models.ScrimRequest) *models.ScrimRequest {
	t.Helper()
	if err := s.CreateRequest(context.Background(), req); err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	return req
}

func TestCreateRequest_OneActivePerCaptain(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first := mustCreate(t, s, newRequest(1, base))

	err := s.CreateRequest(ctx, newRequest(1, base))
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Fatalf("CreateRequest() error = %v, want %s", err, errors.ErrCodeConflict)
	}

	if ok, _ := s.ClaimRequest(ctx, first.ID, models.RequestStatusPending, models.RequestStatusCancelled, base); !ok {
		t.Fatal("ClaimRequest() = false, want true")
	}

	if err := s.CreateRequest(ctx, newRequest(1, base)); err != nil {
		t.Errorf("CreateRequest() after cancel error = %v", err)
	}
}

func TestClaimRequest_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	req := mustCreate(t, s, newRequest(1, base))

	tests := []struct {
		name     string
		expected string
		next     string
		want     bool
	}{
		{"pending to matched", models.RequestStatusPending, models.RequestStatusMatched, true},
		{"stale expectation", models.RequestStatusPending, models.RequestStatusCancelled, false},
		{"matched to pending", models.RequestStatusMatched, models.RequestStatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ClaimRequest(ctx, req.ID, tt.expected, tt.next, base)
			if err != nil {
				t.Fatalf("ClaimRequest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ClaimRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClaimPair_IsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := mustCreate(t, s, newRequest(1, base))
	b := mustCreate(t, s, newRequest(2, base))
	c := mustCreate(t, s, newRequest(3, base))

	if err := s.ClaimPair(ctx, &models.ScrimMatch{Request1ID: a.ID, Request2ID: b.ID, CreatedAt: base, Status: models.MatchStatusPendingApproval}); err != nil {
		t.Fatalf("ClaimPair() error = %v", err)
	}

	err := s.ClaimPair(ctx, &models.ScrimMatch{Request1ID: c.ID, Request2ID: b.ID, CreatedAt: base, Status: models.MatchStatusPendingApproval})
	if !errors.Is(err, errors.ErrCodeClaimRace) {
		t.Fatalf("ClaimPair() error = %v, want %s", err, errors.ErrCodeClaimRace)
	}

	got, _ := s.GetRequest(ctx, c.ID)
	if got.Status != models.RequestStatusPending {
		t.Errorf("losing candidate status = %s, want %s", got.Status, models.RequestStatusPending)
	}
	if n := len(s.Matches()); n != 1 {
		t.Errorf("len(Matches()) = %d, want 1", n)
	}
}

func TestFindCompatible_OrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	third := mustCreate(t, s, newRequest(3, base.Add(2*time.Minute)))
	first := mustCreate(t, s, newRequest(1, base))
	second := mustCreate(t, s, newRequest(2, base.Add(time.Minute)))
	blocked := mustCreate(t, s, newRequest(4, base.Add(-time.Minute)))

	other := newRequest(5, base)
	other.MatchType = models.MatchTypeBo1
	mustCreate(t, s, other)

	expired := newRequest(6, base.Add(-3*time.Hour))
	mustCreate(t, s, expired)

	self := newRequest(9, base.Add(5*time.Minute))
	self.ID = 999

	got, err := s.FindCompatible(ctx, self, []int64{blocked.CaptainID}, base.Add(10*time.Minute), 10)
	if err != nil {
		t.Fatalf("FindCompatible() error = %v", err)
	}

	want := []uint{first.ID, second.ID, third.ID}
	if len(got) != len(want) {
		t.Fatalf("FindCompatible() returned %d requests, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("FindCompatible()[%d].ID = %d, want %d", i, got[i].ID, want[i])
		}
	}
}

func TestAvoidPairs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	pair := &models.AvoidPair{CaptainLow: 1, CaptainHigh: 2, ExpiresAt: base.Add(time.Hour), CreatedAt: base}
	if err := s.UpsertAvoidPair(ctx, pair); err != nil {
		t.Fatalf("UpsertAvoidPair() error = %v", err)
	}

	refresh := &models.AvoidPair{CaptainLow: 1, CaptainHigh: 2, ExpiresAt: base.Add(3 * time.Hour), CreatedAt: base}
	if err := s.UpsertAvoidPair(ctx, refresh); err != nil {
		t.Fatalf("UpsertAvoidPair() error = %v", err)
	}

	if blocked, _ := s.IsPairBlocked(ctx, 1, 2, base.Add(2*time.Hour)); !blocked {
		t.Error("IsPairBlocked() = false after refresh, want true")
	}

	captains, _ := s.BlockedCaptains(ctx, 2, base)
	if len(captains) != 1 || captains[0] != 1 {
		t.Errorf("BlockedCaptains() = %v, want [1]", captains)
	}

	n, _ := s.DeleteExpiredAvoidPairs(ctx, base.Add(4*time.Hour))
	if n != 1 {
		t.Errorf("DeleteExpiredAvoidPairs() = %d, want 1", n)
	}
}

func TestWaitlist(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	late := mustCreate(t, s, newRequest(1, base))
	early := mustCreate(t, s, newRequest(2, base))

	if err := s.UpsertWaitlistEntry(ctx, &models.WaitlistEntry{RequestID: early.ID, CaptainID: 2, CreatedAt: base}); err != nil {
		t.Fatalf("UpsertWaitlistEntry() error = %v", err)
	}
	if err := s.UpsertWaitlistEntry(ctx, &models.WaitlistEntry{RequestID: late.ID, CaptainID: 1, CreatedAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("UpsertWaitlistEntry() error = %v", err)
	}
	// Idempotent: the original position is kept.
	if err := s.UpsertWaitlistEntry(ctx, &models.WaitlistEntry{RequestID: early.ID, CaptainID: 2, CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("UpsertWaitlistEntry() error = %v", err)
	}

	got, _ := s.ListWaitlistedRequests(ctx, models.MatchTypeBo3, base, 10)
	if len(got) != 2 || got[0].ID != early.ID || got[1].ID != late.ID {
		t.Fatalf("ListWaitlistedRequests() = %v, want [%d %d]", got, early.ID, late.ID)
	}

	s.ClaimRequest(ctx, late.ID, models.RequestStatusPending, models.RequestStatusCancelled, base)
	n, _ := s.DeleteStaleWaitlistEntries(ctx)
	if n != 1 {
		t.Errorf("DeleteStaleWaitlistEntries() = %d, want 1", n)
	}
	if s.WaitlistSize() != 1 {
		t.Errorf("WaitlistSize() = %d, want 1", s.WaitlistSize())
	}
}

func TestListOrphanedRequests(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := mustCreate(t, s, newRequest(1, base))
	b := mustCreate(t, s, newRequest(2, base))
	c := mustCreate(t, s, newRequest(3, base))
	d := mustCreate(t, s, newRequest(4, base))

	declined := &models.ScrimMatch{Request1ID: a.ID, Request2ID: b.ID, CreatedAt: base, Status: models.MatchStatusPendingApproval}
	if err := s.ClaimPair(ctx, declined); err != nil {
		t.Fatalf("ClaimPair() error = %v", err)
	}
	if err := s.ClaimPair(ctx, &models.ScrimMatch{Request1ID: c.ID, Request2ID: d.ID, CreatedAt: base, Status: models.MatchStatusPendingApproval}); err != nil {
		t.Fatalf("ClaimPair() error = %v", err)
	}
	s.DeclineMatch(ctx, declined.ID, nil, base)

	tests := []struct {
		name   string
		before time.Time
		want   []uint
	}{
		{name: "updated at cutoff", before: base, want: nil},
		{name: "past cutoff", before: base.Add(time.Minute), want: []uint{a.ID, b.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListOrphanedRequests(ctx, tt.before, 10)
			if err != nil {
				t.Fatalf("ListOrphanedRequests() error = %v", err)
			}
			var ids []uint
			for _, req := range got {
				ids = append(ids, req.ID)
			}
			if !slices.Equal(ids, tt.want) {
				t.Errorf("ListOrphanedRequests() = %v, want %v", ids, tt.want)
			}
		})
	}
}
