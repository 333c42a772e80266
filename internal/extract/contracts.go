package extract

import (
	"context"

	"examextractor/internal/entity"
)

// PageImage is one rasterized page of a scanned paper, ready for a vision
// model. Rasterization itself happens upstream.
type PageImage struct {
	PageNumber int
	MimeType   string
	Data       []byte
}

// Request carries everything the provider needs for one extraction call.
type Request struct {
	Pages         []PageImage
	FilenameHint  string
	SubjectHint   string
	PromptVersion string
}

// Result is the provider's successful output: the question list plus
// whatever per-question confidence scores it reported. Questions without a
// score get the product default at completion time.
type Result struct {
	Questions             []entity.Question
	PerQuestionConfidence map[string]float64
	ModelName             string
}

// QuestionExtractor is the external AI extraction call. The artifact core
// never invokes it directly; a caller drives it between
// MarkExtractionStarted and CompleteExtraction/FailExtraction.
type QuestionExtractor interface {
	PerformExtraction(ctx context.Context, req Request) (Result, error)
}
