package predictions

import (
	"sort"
	"strings"

	"examextractor/internal/entity"
	"examextractor/internal/hashing"
)

// ComputeSignature derives the composite cache key for a prediction run.
// The artifact id list is sorted before hashing, so the same set of sources
// produces the same signature regardless of selection order. Syllabus text
// participates only through its normalized hash.
func ComputeSignature(artifactIDs []string, questionCount int, syllabusText string) entity.InputSignature {
	ids := make([]string, len(artifactIDs))
	copy(ids, artifactIDs)
	sort.Strings(ids)

	var syllabusHash *string
	material := strings.Join(ids, "|")
	if strings.TrimSpace(syllabusText) != "" {
		h := hashing.HashText(syllabusText)
		syllabusHash = &h
		material += "|" + h
	}

	return entity.InputSignature{
		ArtifactIDs:   ids,
		QuestionCount: questionCount,
		Hash:          hashing.HashBytes([]byte(material)),
		SyllabusHash:  syllabusHash,
	}
}
