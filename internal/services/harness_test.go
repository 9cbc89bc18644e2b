package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/internal/repositories/memory"
	"github.com/mroshb/scrim_bot/pkg/errors"
)

var _ Store = (*memory.Store)(nil)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notification struct {
	captainID  int64
	matchID    uint
	opponentID int64
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

func (n *recordingNotifier) Notify(ctx context.Context, captainID int64, matchID uint, opponentCaptainID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{captainID: captainID, matchID: matchID, opponentID: opponentCaptainID})
	return n.err
}

func (n *recordingNotifier) Calls() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.calls...)
}

type harness struct {
	store     *memory.Store
	clock     *fakeClock
	notifier  *recordingNotifier
	guard     *AvoidListGuard
	waitlist  *WaitlistManager
	engine    *MatchingEngine
	approvals *ApprovalCoordinator
	reaper    *ExpiryReaper
	service   *ScrimService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithAvoidStore(t, nil)
}

// newHarnessWithAvoidStore lets a test put a wrapper in front of the avoid
// pair table. A nil wrap uses the memory store directly.
func newHarnessWithAvoidStore(t *testing.T, wrap func(*memory.Store) AvoidStore) *harness {
	t.Helper()

	h := &harness{
		store:    memory.NewStore(),
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
	}
	now := h.clock.Now

	var avoid AvoidStore = h.store
	if wrap != nil {
		avoid = wrap(h.store)
	}

	h.guard = NewAvoidListGuard(avoid, now, DefaultAvoidCooldown)
	h.waitlist = NewWaitlistManager(h.store, h.notifier, now, DefaultScanLimit)
	h.engine = NewMatchingEngine(h.store, h.store, h.guard, h.waitlist, now, MatchingEngineOptions{})
	h.approvals = NewApprovalCoordinator(h.store, h.store, h.guard, h.engine, now)
	h.reaper = NewExpiryReaper(h.store, h.store, h.approvals, h.guard, h.waitlist, now, time.Minute)
	h.service = NewScrimService(h.store, h.engine, h.approvals, h.waitlist, now, DefaultRequestTTL)
	return h
}

func (h *harness) submit(t *testing.T, captainID int64, slot string) *Result {
	t.Helper()
	res, err := h.service.Submit(context.Background(), SubmitInput{
		CaptainID: captainID,
		MatchType: models.MatchTypeBo3,
		TimeSlot:  slot,
		Timezone:  "IST",
	})
	if err != nil {
		t.Fatalf("Submit(captain %d) error = %v", captainID, err)
	}
	return res
}

func (h *harness) request(t *testing.T, id uint) *models.ScrimRequest {
	t.Helper()
	req, err := h.store.GetRequest(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRequest(%d) error = %v", id, err)
	}
	return req
}

func (h *harness) match(t *testing.T, id uint) *models.ScrimMatch {
	t.Helper()
	match, err := h.store.GetMatch(context.Background(), id)
	if err != nil {
		t.Fatalf("GetMatch(%d) error = %v", id, err)
	}
	return match
}

// assertAtMostOneActiveMatch fails if any request is held by two active matches.
func (h *harness) assertAtMostOneActiveMatch(t *testing.T) {
	t.Helper()
	holders := make(map[uint]uint)
	for _, m := range h.store.Matches() {
		if !m.IsActive() {
			continue
		}
		for _, reqID := range []uint{m.Request1ID, m.Request2ID} {
			if other, ok := holders[reqID]; ok {
				t.Fatalf("request %d held by matches %d and %d", reqID, other, m.ID)
			}
			holders[reqID] = m.ID
		}
		if m.Captain1ID == m.Captain2ID {
			t.Fatalf("match %d pairs captain %d with itself", m.ID, m.Captain1ID)
		}
	}
}

func captainPair(m *models.ScrimMatch) string {
	low, high := models.OrderedPair(m.Captain1ID, m.Captain2ID)
	return fmt.Sprintf("%d-%d", low, high)
}

// flakyAvoidStore fails avoid pair writes while failing is set.
type flakyAvoidStore struct {
	*memory.Store

	mu      sync.Mutex
	failing bool
}

func (s *flakyAvoidStore) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *flakyAvoidStore) UpsertAvoidPair(ctx context.Context, pair *models.AvoidPair) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New(errors.ErrCodePersistence, "failed to save avoid pair")
	}
	return s.Store.UpsertAvoidPair(ctx, pair)
}
