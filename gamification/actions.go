package gamification

// Action names accepted by the actions endpoint. daily_checkin is the only
// one with persistence and an idempotency guard; the rest are fire-and-forget
// acknowledgements whose point values mirror the aggregator weights, letting
// the client update its display optimistically while the stored total keeps
// deriving from the actual rows.
const (
	ActionDailyCheckin     = "daily_checkin"
	ActionBookAdded        = "book_added"
	ActionBookCompleted    = "book_completed"
	ActionNoteCreated      = "note_created"
	ActionHighlightCreated = "highlight_created"
	ActionSessionLogged    = "session_logged"
)

var actionPoints = map[string]int{
	ActionBookAdded:        PointsPerBook,
	ActionBookCompleted:    PointsPerBook,
	ActionNoteCreated:      PointsPerNote,
	ActionHighlightCreated: PointsPerHighlight,
	ActionSessionLogged:    PointsPerSession,
}

// ActionPoints returns the point value of a non-check-in action and whether
// the action name is known.
func ActionPoints(action string) (int, bool) {
	pts, ok := actionPoints[action]
	return pts, ok
}
