package models

// RejectReason tags an expected business-rule failure.
type RejectReason string

const (
	ReasonNotYourTurn        RejectReason = "not-your-turn"
	ReasonGameOver           RejectReason = "game-over"
	ReasonCellOccupied       RejectReason = "cell-occupied"
	ReasonOutOfBounds        RejectReason = "out-of-bounds"
	ReasonColumnFull         RejectReason = "column-full"
	ReasonGameNotStarted     RejectReason = "game-not-started"
	ReasonInvalidMove        RejectReason = "invalid-move"
	ReasonInvalidPlacement   RejectReason = "invalid-placement"
	ReasonAbilityUsed        RejectReason = "ability-used"
	ReasonLobbyFull          RejectReason = "lobby-full"
	ReasonSelfJoin           RejectReason = "self-join"
	ReasonNotLobbyCreator    RejectReason = "not-lobby-creator"
	ReasonLobbyNotWaiting    RejectReason = "lobby-not-waiting"
	ReasonInviteExpired      RejectReason = "invite-expired"
	ReasonInviteUnknown      RejectReason = "invite-unknown"
	ReasonNotAPlayer         RejectReason = "not-a-player"
	ReasonRematchNotFinished RejectReason = "rematch-not-finished"
	ReasonUnsupportedGame    RejectReason = "unsupported-game"
	ReasonRateLimited        RejectReason = "rate-limited"
	ReasonInvalidMessage     RejectReason = "invalid-message"
)

// Rejection is returned instead of a new state when a move or lobby operation breaks a
// rule. It implements error so service layers can pass it through error returns and
// callers can pick it out with errors.As.
type Rejection struct {
	Reason RejectReason `json:"reason"`
}

// Reject builds a Rejection for reason.
func Reject(reason RejectReason) *Rejection {
	return &Rejection{Reason: reason}
}

func (r *Rejection) Error() string {
	return "rejected: " + string(r.Reason)
}
