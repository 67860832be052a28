package models

// BlueprintRule asks for at least Min questions matching Tema and/or Area
// inside a block.
type BlueprintRule struct {
	Tema string `json:"tema,omitempty"`
	Area string `json:"area,omitempty"`
	Min  int    `json:"min"`
}

type BlueprintBlock struct {
	Disciplina string          `json:"disciplina"`
	Quantidade int             `json:"quantidade"`
	Regras     []BlueprintRule `json:"regras,omitempty"`
}

type Blueprint struct {
	Blocos []BlueprintBlock `json:"blocos"`
}

type ExpectedBlock struct {
	Disciplina string `json:"disciplina"`
	Qtd        int    `json:"qtd"`
}

// ExamMeta is persisted next to an assembled exam. Avisos lists the blocks
// the bank could not fill.
type ExamMeta struct {
	Expected      []ExpectedBlock `json:"expected"`
	SelectedCount map[string]int  `json:"selectedCount"`
	Avisos        []string        `json:"avisos"`
	Questions     []string        `json:"questions"`
	CreatedAt     int64           `json:"createdAt"`
}
