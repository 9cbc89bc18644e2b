// Package memory is a process-local Store used by tests and by
// STORE_DRIVER=memory. One mutex guards every table, which makes ClaimPair
// atomic the same way a database transaction would.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mroshb/scrim_bot/internal/models"
	"github.com/mroshb/scrim_bot/pkg/errors"
)

type Store struct {
	mu sync.Mutex

	requests  map[uint]*models.ScrimRequest
	matches   map[uint]*models.ScrimMatch
	pairs     map[[2]int64]*models.AvoidPair
	waitlist  map[uint]*models.WaitlistEntry
	nextReqID uint
	nextMatID uint
	nextAuxID uint
}

func NewStore() *Store {
	return &Store{
		requests: make(map[uint]*models.ScrimRequest),
		matches:  make(map[uint]*models.ScrimMatch),
		pairs:    make(map[[2]int64]*models.AvoidPair),
		waitlist: make(map[uint]*models.WaitlistEntry),
	}
}

func isEngineActive(status string) bool {
	return status == models.RequestStatusPending || status == models.RequestStatusMatched
}

func (s *Store) CreateRequest(ctx context.Context, req *models.ScrimRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.CaptainID == req.CaptainID && isEngineActive(existing.Status) {
			return errors.New(errors.ErrCodeConflict, "captain already has an active scrim request")
		}
	}

	s.nextReqID++
	req.ID = s.nextReqID
	stored := *req
	s.requests[req.ID] = &stored
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id uint) (*models.ScrimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "request not found")
	}
	out := *req
	return &out, nil
}

func (s *Store) GetActiveRequestByCaptain(ctx context.Context, captainID int64) (*models.ScrimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range s.requests {
		if req.CaptainID == captainID && isEngineActive(req.Status) {
			out := *req
			return &out, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no active request")
}

func (s *Store) FindCompatible(ctx context.Context, req *models.ScrimRequest, excludedCaptains []int64, now time.Time, limit int) ([]models.ScrimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ScrimRequest
	for _, c := range s.requests {
		if c.Status != models.RequestStatusPending || !c.ExpiresAt.After(now) {
			continue
		}
		if slices.Contains(excludedCaptains, c.CaptainID) || !req.CompatibleWith(c) {
			continue
		}
		out = append(out, *c)
	}

	sortRequests(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ClaimRequest(ctx context.Context, id uint, expected, next string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != expected {
		return false, nil
	}
	req.Status = next
	req.UpdatedAt = now
	return true, nil
}

func (s *Store) ListExpiredRequests(ctx context.Context, now time.Time, limit int) ([]models.ScrimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ScrimRequest
	for _, req := range s.requests {
		if req.Status == models.RequestStatusPending && req.ExpiresAt.Before(now) {
			out = append(out, *req)
		}
	}

	sortRequests(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListOrphanedRequests(ctx context.Context, before time.Time, limit int) ([]models.ScrimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ScrimRequest
	for _, req := range s.requests {
		if req.Status != models.RequestStatusMatched || !req.UpdatedAt.Before(before) {
			continue
		}
		if !s.hasActiveMatchLocked(req.ID) {
			out = append(out, *req)
		}
	}

	sortRequests(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) hasActiveMatchLocked(requestID uint) bool {
	for _, match := range s.matches {
		if (match.Request1ID == requestID || match.Request2ID == requestID) && match.IsActive() {
			return true
		}
	}
	return false
}

func (s *Store) ClaimPair(ctx context.Context, match *models.ScrimMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r1, ok1 := s.requests[match.Request1ID]
	r2, ok2 := s.requests[match.Request2ID]
	if !ok1 || !ok2 || r1.Status != models.RequestStatusPending || r2.Status != models.RequestStatusPending {
		return errors.New(errors.ErrCodeClaimRace, "request already claimed")
	}

	r1.Status = models.RequestStatusMatched
	r1.UpdatedAt = match.CreatedAt
	r2.Status = models.RequestStatusMatched
	r2.UpdatedAt = match.CreatedAt

	s.nextMatID++
	match.ID = s.nextMatID
	stored := *match
	s.matches[match.ID] = &stored
	return nil
}

func (s *Store) GetMatch(ctx context.Context, id uint) (*models.ScrimMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "match not found")
	}
	return copyMatch(match), nil
}

func (s *Store) GetActiveMatchByRequest(ctx context.Context, requestID uint) (*models.ScrimMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, match := range s.matches {
		if (match.Request1ID == requestID || match.Request2ID == requestID) && match.IsActive() {
			return copyMatch(match), nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no active match for request")
}

func (s *Store) SetApproval(ctx context.Context, matchID uint, captainID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok || match.Status != models.MatchStatusPendingApproval {
		return false, nil
	}
	switch captainID {
	case match.Captain1ID:
		match.Captain1Approved = true
	case match.Captain2ID:
		match.Captain2Approved = true
	default:
		return false, nil
	}
	match.UpdatedAt = now
	return true, nil
}

func (s *Store) ApproveMatch(ctx context.Context, matchID uint, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok || match.Status != models.MatchStatusPendingApproval || !match.Captain1Approved || !match.Captain2Approved {
		return false, nil
	}
	matchedAt := now
	match.Status = models.MatchStatusApproved
	match.MatchedAt = &matchedAt
	match.UpdatedAt = now
	return true, nil
}

func (s *Store) DeclineMatch(ctx context.Context, matchID uint, declinedBy *int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok || match.Status != models.MatchStatusPendingApproval {
		return false, nil
	}
	match.Status = models.MatchStatusDeclined
	if declinedBy != nil {
		by := *declinedBy
		match.DeclinedBy = &by
	}
	match.UpdatedAt = now
	return true, nil
}

func (s *Store) TransitionMatch(ctx context.Context, matchID uint, from, to string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok || match.Status != from {
		return false, nil
	}
	match.Status = to
	match.UpdatedAt = now
	return true, nil
}

func (s *Store) ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.ScrimMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ScrimMatch
	for _, match := range s.matches {
		if match.Status == models.MatchStatusPendingApproval && match.ExpiresAt.Before(now) {
			out = append(out, *copyMatch(match))
		}
	}

	sortMatches(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListMatchesSince(ctx context.Context, since time.Time, limit int) ([]models.ScrimMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ScrimMatch
	for _, match := range s.matches {
		if !match.CreatedAt.Before(since) {
			out = append(out, *copyMatch(match))
		}
	}

	sortMatches(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertAvoidPair(ctx context.Context, pair *models.AvoidPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]int64{pair.CaptainLow, pair.CaptainHigh}
	if existing, ok := s.pairs[key]; ok {
		existing.ExpiresAt = pair.ExpiresAt
		pair.ID = existing.ID
		return nil
	}

	s.nextAuxID++
	pair.ID = s.nextAuxID
	stored := *pair
	s.pairs[key] = &stored
	return nil
}

func (s *Store) IsPairBlocked(ctx context.Context, low, high int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.pairs[[2]int64{low, high}]
	return ok && pair.ExpiresAt.After(now), nil
}

func (s *Store) BlockedCaptains(ctx context.Context, captainID int64, now time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []int64
	for _, pair := range s.pairs {
		if !pair.ExpiresAt.After(now) {
			continue
		}
		switch captainID {
		case pair.CaptainLow:
			out = append(out, pair.CaptainHigh)
		case pair.CaptainHigh:
			out = append(out, pair.CaptainLow)
		}
	}
	return out, nil
}

func (s *Store) DeleteExpiredAvoidPairs(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, pair := range s.pairs {
		if pair.ExpiresAt.Before(now) {
			delete(s.pairs, key)
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.waitlist[entry.RequestID]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		return nil
	}

	s.nextAuxID++
	entry.ID = s.nextAuxID
	stored := *entry
	s.waitlist[entry.RequestID] = &stored
	return nil
}

func (s *Store) DeleteWaitlistEntry(ctx context.Context, requestID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.waitlist, requestID)
	return nil
}

func (s *Store) ListWaitlistedRequests(ctx context.Context, matchType string, now time.Time, limit int) ([]models.ScrimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]*models.WaitlistEntry, 0, len(s.waitlist))
	for _, entry := range s.waitlist {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	var out []models.ScrimRequest
	for _, entry := range entries {
		req, ok := s.requests[entry.RequestID]
		if !ok || req.Status != models.RequestStatusPending || req.MatchType != matchType || !req.ExpiresAt.After(now) {
			continue
		}
		out = append(out, *req)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteStaleWaitlistEntries(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for requestID := range s.waitlist {
		req, ok := s.requests[requestID]
		if !ok || req.Status != models.RequestStatusPending {
			delete(s.waitlist, requestID)
			n++
		}
	}
	return n, nil
}

// Matches returns a snapshot of every match, oldest first.
func (s *Store) Matches() []models.ScrimMatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ScrimMatch, 0, len(s.matches))
	for _, match := range s.matches {
		out = append(out, *copyMatch(match))
	}
	sortMatches(out)
	return out
}

// WaitlistSize returns the number of waitlist entries.
func (s *Store) WaitlistSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waitlist)
}

func copyMatch(m *models.ScrimMatch) *models.ScrimMatch {
	out := *m
	if m.MatchedAt != nil {
		t := *m.MatchedAt
		out.MatchedAt = &t
	}
	if m.DeclinedBy != nil {
		by := *m.DeclinedBy
		out.DeclinedBy = &by
	}
	return &out
}

func sortRequests(reqs []models.ScrimRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
}

func sortMatches(matches []models.ScrimMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
}
