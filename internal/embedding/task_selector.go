package embedding

// Purpose describes what an embedding will be used for.
type Purpose string

const (
	PurposeArchive    Purpose = "archive"    // stored exchange summaries
	PurposeRecall     Purpose = "recall"     // search queries against the archive
	PurposeSimilarity Purpose = "similarity" // symmetric comparison
)

// TaskTypeFor maps a purpose onto the GenAI task type that suits it.
func TaskTypeFor(p Purpose) string {
	switch p {
	case PurposeArchive:
		return "RETRIEVAL_DOCUMENT"
	case PurposeRecall:
		return "RETRIEVAL_QUERY"
	default:
		return "SEMANTIC_SIMILARITY"
	}
}

var validTaskTypes = map[string]bool{
	"SEMANTIC_SIMILARITY": true,
	"CLASSIFICATION":      true,
	"CLUSTERING":          true,
	"RETRIEVAL_DOCUMENT":  true,
	"RETRIEVAL_QUERY":     true,
	"QUESTION_ANSWERING":  true,
	"FACT_VERIFICATION":   true,
}

// normalizeTaskType returns t if GenAI accepts it, otherwise the document default.
func normalizeTaskType(t string) string {
	if validTaskTypes[t] {
		return t
	}
	return TaskTypeFor(PurposeArchive)
}
