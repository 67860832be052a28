package kvstore

// Store keys, relative to the store namespace.
const (
	AdaptiveNamespace  = "adaptive:"
	DeckKey            = AdaptiveNamespace + "deck"
	AdaptiveSessionKey = AdaptiveNamespace + "session"
	AdaptiveHistoryKey = AdaptiveNamespace + "history"

	ExamNamespace  = "simulado:cti2026:"
	ExamHistoryKey = ExamNamespace + "history"
	ExamMetaKey    = ExamNamespace + "meta"
	ExamResultKey  = ExamNamespace + "result"
	ExamSessionKey = ExamNamespace + "quiz"
	ExamTimerKey   = ExamNamespace + "timer"

	CollectionsNamespace = "collections:"
	FavoritesKey         = CollectionsNamespace + "favs"
	ListsKey             = CollectionsNamespace + "lists"
	PracticeSessionKey   = CollectionsNamespace + "session:"
)

// PracticeSession is the session key used when practicing a question list.
func PracticeSession(listID string) string {
	return PracticeSessionKey + listID
}
