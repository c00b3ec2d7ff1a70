package intake

// Status is the lifecycle state of a wizard.
type Status int

const (
	StatusEditing Status = iota
	StatusReviewing
	StatusSubmitting
	StatusSubmitted
	StatusSubmissionFailed
)

func (s Status) String() string {
	switch s {
	case StatusEditing:
		return "editing"
	case StatusReviewing:
		return "reviewing"
	case StatusSubmitting:
		return "submitting"
	case StatusSubmitted:
		return "submitted"
	case StatusSubmissionFailed:
		return "submission_failed"
	default:
		return "unknown"
	}
}

// ProgressState is the marking of one progress indicator node.
type ProgressState int

const (
	ProgressPending ProgressState = iota
	ProgressActive
	ProgressCompleted
)

// Class returns the CSS class the node carries, "" for pending.
func (p ProgressState) Class() string {
	switch p {
	case ProgressActive:
		return "active"
	case ProgressCompleted:
		return "completed"
	default:
		return ""
	}
}

func (p ProgressState) String() string {
	switch p {
	case ProgressActive:
		return "active"
	case ProgressCompleted:
		return "completed"
	default:
		return "pending"
	}
}
