package gamification

// Trigger types decide which stats counter an achievement threshold is
// compared against.
const (
	TriggerBooksUploaded     = "books_uploaded"
	TriggerBooksCompleted    = "books_completed"
	TriggerNotesCreated      = "notes_created"
	TriggerHighlightsCreated = "highlights_created"
	TriggerStreakDays        = "streak_days"
	TriggerReadingMinutes    = "reading_minutes"
)

// Achievement is a static, code-defined milestone. Only the unlock event is
// persisted; the catalog itself never lives in the database.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Threshold   int    `json:"threshold"`
	Trigger     string `json:"trigger"`
}

// Catalog lists every achievement the evaluator knows about, ordered roughly
// by how early a new reader can reach them.
var Catalog = []Achievement{
	{ID: "first_book", Title: "First Steps", Description: "Add your first book", Points: 10, Threshold: 1, Trigger: TriggerBooksUploaded},
	{ID: "bookworm", Title: "Bookworm", Description: "Add 5 books to your library", Points: 25, Threshold: 5, Trigger: TriggerBooksUploaded},
	{ID: "librarian", Title: "Librarian", Description: "Add 25 books to your library", Points: 100, Threshold: 25, Trigger: TriggerBooksUploaded},
	{ID: "first_finish", Title: "Finisher", Description: "Complete your first book", Points: 20, Threshold: 1, Trigger: TriggerBooksCompleted},
	{ID: "shelf_clearer", Title: "Shelf Clearer", Description: "Complete 10 books", Points: 75, Threshold: 10, Trigger: TriggerBooksCompleted},
	{ID: "first_note", Title: "Margin Writer", Description: "Write your first note", Points: 10, Threshold: 1, Trigger: TriggerNotesCreated},
	{ID: "note_taker", Title: "Note Taker", Description: "Write 10 notes", Points: 30, Threshold: 10, Trigger: TriggerNotesCreated},
	{ID: "scholar", Title: "Scholar", Description: "Write 50 notes", Points: 100, Threshold: 50, Trigger: TriggerNotesCreated},
	{ID: "first_highlight", Title: "Bright Idea", Description: "Save your first highlight", Points: 10, Threshold: 1, Trigger: TriggerHighlightsCreated},
	{ID: "illuminator", Title: "Illuminator", Description: "Save 25 highlights", Points: 50, Threshold: 25, Trigger: TriggerHighlightsCreated},
	{ID: "streak_3", Title: "Warming Up", Description: "Read 3 days in a row", Points: 15, Threshold: 3, Trigger: TriggerStreakDays},
	{ID: "streak_7", Title: "Week One", Description: "Read 7 days in a row", Points: 40, Threshold: 7, Trigger: TriggerStreakDays},
	{ID: "streak_30", Title: "Habitual Reader", Description: "Read 30 days in a row", Points: 200, Threshold: 30, Trigger: TriggerStreakDays},
	{ID: "first_hour", Title: "First Hour", Description: "Log 60 minutes of reading", Points: 20, Threshold: 60, Trigger: TriggerReadingMinutes},
	{ID: "deep_reader", Title: "Deep Reader", Description: "Log 10 hours of reading", Points: 120, Threshold: 600, Trigger: TriggerReadingMinutes},
}

// FindAchievement returns the catalog entry with the given id.
func FindAchievement(id string) (Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// counterFor maps a trigger type onto the stats field it tests. Unknown
// triggers count as zero so a stale unlock row can never match again.
func counterFor(stats Stats, trigger string) int {
	switch trigger {
	case TriggerBooksUploaded:
		return stats.BooksRead
	case TriggerBooksCompleted:
		return stats.BooksCompleted
	case TriggerNotesCreated:
		return stats.NotesCreated
	case TriggerHighlightsCreated:
		return stats.HighlightsCreated
	case TriggerStreakDays:
		return stats.ReadingStreak
	case TriggerReadingMinutes:
		return stats.TotalReadingTime
	}
	return 0
}
