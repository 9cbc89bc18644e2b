package models

import (
	"time"

	"github.com/mroshb/scrim_bot/internal/timeslot"
	"gorm.io/gorm"
)

// Match type constants
const (
	MatchTypeBo1 = "bo1"
	MatchTypeBo3 = "bo3"
	MatchTypeBo5 = "bo5"
)

// Request status constants
const (
	RequestStatusPending    = "pending"
	RequestStatusMatched    = "matched"
	RequestStatusInProgress = "in_progress"
	RequestStatusExpired    = "expired"
	RequestStatusCancelled  = "cancelled"
)

// Match status constants
const (
	MatchStatusPendingApproval = "pending_approval"
	MatchStatusApproved        = "approved"
	MatchStatusDeclined        = "declined"
	MatchStatusExpired         = "expired"
	MatchStatusChatActive      = "chat_active"
	MatchStatusMapBanning      = "map_banning"
	MatchStatusCompleted       = "completed"
)

// ValidMatchType reports whether t is one of bo1, bo3 or bo5.
func ValidMatchType(t string) bool {
	switch t {
	case MatchTypeBo1, MatchTypeBo3, MatchTypeBo5:
		return true
	}
	return false
}

type ScrimRequest struct {
	ID uint `gorm:"primaryKey"`
	// A captain may own one request the engine is still working on.
	CaptainID    int64     `gorm:"not null;index;index:idx_scrim_requests_active_captain,unique,where:status = 'pending' OR status = 'matched'"`
	TeamID       *int64    `gorm:"index"`
	MatchType    string    `gorm:"type:varchar(3);not null;index"`
	TimeSlot     string    `gorm:"type:varchar(64);not null"`
	Timezone     string    `gorm:"type:varchar(8);not null"`
	SlotStartUTC int       `gorm:"not null"`
	SlotMinutes  int       `gorm:"not null"`
	Status       string    `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt    time.Time `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

func (ScrimRequest) TableName() string {
	return "scrim_requests"
}

// IsTerminal reports whether the request can no longer change state.
func (r *ScrimRequest) IsTerminal() bool {
	return r.Status == RequestStatusExpired || r.Status == RequestStatusCancelled
}

// Window returns the request's slot on the UTC clock.
func (r *ScrimRequest) Window() timeslot.Window {
	return timeslot.Window{StartUTC: r.SlotStartUTC, Minutes: r.SlotMinutes}
}

// CompatibleWith reports whether two different captains' requests could be paired:
// same match type and overlapping slots. Status and cooldowns are checked elsewhere.
func (r *ScrimRequest) CompatibleWith(other *ScrimRequest) bool {
	return r.ID != other.ID &&
		r.CaptainID != other.CaptainID &&
		r.MatchType == other.MatchType &&
		r.Window().Overlaps(other.Window())
}

// BeforeCreate validates a new request. Status updates are CAS writes and skip it.
func (r *ScrimRequest) BeforeCreate(tx *gorm.DB) error {
	if !ValidMatchType(r.MatchType) {
		return gorm.ErrInvalidData
	}

	validStatuses := map[string]bool{
		RequestStatusPending:    true,
		RequestStatusMatched:    true,
		RequestStatusInProgress: true,
		RequestStatusExpired:    true,
		RequestStatusCancelled:  true,
	}
	if !validStatuses[r.Status] {
		return gorm.ErrInvalidData
	}

	if r.TimeSlot == "" || r.Timezone == "" {
		return gorm.ErrInvalidData
	}

	return nil
}

type ScrimMatch struct {
	ID               uint       `gorm:"primaryKey"`
	Request1ID       uint       `gorm:"not null;index"`
	Request2ID       uint       `gorm:"not null;index"`
	Captain1ID       int64      `gorm:"not null;index"`
	Captain2ID       int64      `gorm:"not null;index"`
	Team1ID          *int64     `gorm:"index"`
	Team2ID          *int64     `gorm:"index"`
	MatchType        string     `gorm:"type:varchar(3);not null"`
	TimeSlot         string     `gorm:"type:varchar(64);not null"`
	Timezone         string     `gorm:"type:varchar(8);not null"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending_approval';index"`
	Captain1Approved bool       `gorm:"not null;default:false"`
	Captain2Approved bool       `gorm:"not null;default:false"`
	DeclinedBy       *int64     `gorm:"index"`
	CreatedAt        time.Time  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt        time.Time  `gorm:"not null;autoUpdateTime:false"`
	MatchedAt        *time.Time `gorm:"index"`
	ExpiresAt        time.Time  `gorm:"not null;index"`
}

func (ScrimMatch) TableName() string {
	return "scrim_matches"
}

// HasCaptain reports whether captainID is one of the two match captains.
func (m *ScrimMatch) HasCaptain(captainID int64) bool {
	return m.Captain1ID == captainID || m.Captain2ID == captainID
}

// OpponentOf returns the other captain, or 0 if captainID is not party to the match.
func (m *ScrimMatch) OpponentOf(captainID int64) int64 {
	switch captainID {
	case m.Captain1ID:
		return m.Captain2ID
	case m.Captain2ID:
		return m.Captain1ID
	}
	return 0
}

// RequestOf returns the request owned by captainID within the match.
func (m *ScrimMatch) RequestOf(captainID int64) uint {
	switch captainID {
	case m.Captain1ID:
		return m.Request1ID
	case m.Captain2ID:
		return m.Request2ID
	}
	return 0
}

// IsActive reports whether the match still holds its two requests.
func (m *ScrimMatch) IsActive() bool {
	switch m.Status {
	case MatchStatusPendingApproval, MatchStatusApproved, MatchStatusChatActive, MatchStatusMapBanning:
		return true
	}
	return false
}

// NextMapBanStatus returns the status that follows s in the map-ban flow.
func NextMapBanStatus(s string) (string, bool) {
	switch s {
	case MatchStatusApproved:
		return MatchStatusChatActive, true
	case MatchStatusChatActive:
		return MatchStatusMapBanning, true
	case MatchStatusMapBanning:
		return MatchStatusCompleted, true
	}
	return "", false
}

// IsMapBanStatus reports whether s is owned by the map-ban collaborator.
func IsMapBanStatus(s string) bool {
	switch s {
	case MatchStatusApproved, MatchStatusChatActive, MatchStatusMapBanning, MatchStatusCompleted:
		return true
	}
	return false
}

// AvoidPair blocks two captains from being paired until ExpiresAt.
// Captains are stored ordered so the pair is unique regardless of who declined.
type AvoidPair struct {
	ID          uint      `gorm:"primaryKey"`
	CaptainLow  int64     `gorm:"not null;uniqueIndex:idx_avoid_pair"`
	CaptainHigh int64     `gorm:"not null;uniqueIndex:idx_avoid_pair"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
}

func (AvoidPair) TableName() string {
	return "scrim_avoid_pairs"
}

// OrderedPair returns a and b as (low, high).
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID uint      `gorm:"not null;uniqueIndex:idx_waitlist_pair"`
	CaptainID int64     `gorm:"not null;uniqueIndex:idx_waitlist_pair;index"`
	CreatedAt time.Time `gorm:"not null;index;autoCreateTime:false"`
}

func (WaitlistEntry) TableName() string {
	return "scrim_waitlist"
}
