package models

type Favorite struct {
	ID         string `json:"id"`
	Starred    bool   `json:"starred"`
	Note       string `json:"note,omitempty"`
	Disciplina string `json:"disciplina,omitempty"`
	Area       string `json:"area,omitempty"`
	Tema       string `json:"tema,omitempty"`
}

type QuestionList struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Items     []string `json:"items"`
	CreatedAt int64    `json:"createdAt"`
}

// CollectionsExport is the portable backup document of favorites and lists.
type CollectionsExport struct {
	Favs  map[string]Favorite `json:"favs"`
	Lists []QuestionList      `json:"lists"`
}
