package models

// AnswerRecord is the per-question answer state inside a quiz session.
type AnswerRecord struct {
	SelectedKey string `json:"selectedKey,omitempty"`
	IsCorrect   bool   `json:"isCorrect"`
	IsChecked   bool   `json:"isChecked"`
	Time        int64  `json:"time"`
	Flagged     bool   `json:"flagged,omitempty"`
	Seen        bool   `json:"seen,omitempty"`
}

// SessionSnapshot is what a quiz session persists after every mutation.
type SessionSnapshot struct {
	Questions []string                `json:"questions"`
	Index     int                     `json:"index"`
	Answers   map[string]AnswerRecord `json:"answers"`
	Finished  bool                    `json:"finished"`
	SavedAt   int64                   `json:"savedAt"`
}

// SessionSummary is the aggregate computed when a session finishes.
type SessionSummary struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Pct      int `json:"pct"`
}

// TimerState is the persisted form of a countdown clock.
type TimerState struct {
	Remaining   int64 `json:"remaining"`
	Running     bool  `json:"running"`
	LastStartTs int64 `json:"lastStartTs"`
}
