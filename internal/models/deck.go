package models

// ScheduledItem is the Leitner state of one question in the user's deck.
// Disciplina, Area and Tema are a snapshot taken when the item was added,
// not a live view of the bank.
type ScheduledItem struct {
	ID         string  `json:"id"`
	Box        int     `json:"box"`
	Due        int64   `json:"due"`
	Seen       int     `json:"seen"`
	Streak     int     `json:"streak"`
	Ease       float64 `json:"ease"`
	AddedTs    int64   `json:"addedTs"`
	LastTime   *int64  `json:"lastTime"`
	Disciplina string  `json:"disciplina,omitempty"`
	Area       string  `json:"area,omitempty"`
	Tema       string  `json:"tema,omitempty"`
}

type DeckSettings struct {
	DailyGoal int `json:"dailyGoal"`
	NewPerDay int `json:"newPerDay"`
}

type Deck struct {
	Items    map[string]ScheduledItem `json:"items"`
	Settings DeckSettings             `json:"settings"`
}

// DeckStats is a point-in-time snapshot of a deck.
type DeckStats struct {
	Total  int         `json:"total"`
	DueNow int         `json:"dueNow"`
	ByBox  map[int]int `json:"byBox"`
}

// DeckEntry pairs a scheduled item with its bank question, when known.
type DeckEntry struct {
	Item     ScheduledItem `json:"item"`
	Question *Question     `json:"question,omitempty"`
}

// DeckExport is the portable backup document of the adaptive mode.
type DeckExport struct {
	Deck    *Deck           `json:"deck"`
	History []HistoryRecord `json:"history,omitempty"`
}
