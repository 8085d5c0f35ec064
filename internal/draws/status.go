package draws

// Status is the lifecycle state of a draw
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// Status notes recorded on finish
const (
	NoteWinnerSet = "winner_set"
	NoteNoWinner  = "no_winner"
	NoteSoldOut   = "sold_out"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// canTransition encodes the allowed lifecycle edges.
func canTransition(from, to Status) bool {
	switch from {
	case StatusScheduled:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusFinished || to == StatusCancelled
	default:
		return false
	}
}
