package entity

// Question represents a single extracted exam question for data transfer
// between layers. Field names match the extraction payload the provider
// returns.
type Question struct {
	ID                 string  `json:"id"`
	FullText           string  `json:"full_text"`
	Topic              string  `json:"topic,omitempty"`
	Type               string  `json:"type,omitempty"`
	Marks              *int    `json:"marks,omitempty"`
	SourcePaperID      string  `json:"source_paper_id,omitempty"`
	PageNumber         *int    `json:"page_number,omitempty"`
	MainQuestionNumber *string `json:"main_question_number,omitempty"`
	SubQuestionLabel   *string `json:"sub_question_label,omitempty"`
}
