package services

import "github.com/mroshb/scrim_bot/internal/models"

type ResultKind string

const (
	ResultQueued           ResultKind = "queued"
	ResultMatched          ResultKind = "matched"
	ResultAwaitingOpponent ResultKind = "awaiting_opponent"
	ResultApproved         ResultKind = "approved"
	ResultDeclined         ResultKind = "declined"
	ResultCancelled        ResultKind = "cancelled"
)

// Result is what a captain-facing operation produced. Errors are reserved for
// rejected calls and persistence failures.
type Result struct {
	Kind              ResultKind
	Request           *models.ScrimRequest
	Match             *models.ScrimMatch
	OpponentCaptainID int64
}

func matchedResult(req *models.ScrimRequest, match *models.ScrimMatch) *Result {
	return &Result{
		Kind:              ResultMatched,
		Request:           req,
		Match:             match,
		OpponentCaptainID: match.OpponentOf(req.CaptainID),
	}
}
