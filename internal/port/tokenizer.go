package port

// Tokenizer splits passage and query text for BM25 and estimates LLM token
// counts for context packing. The same tokenizer must serve both the index
// and the queries run against it.
type Tokenizer interface {
	Tokenize(text string) []string

	// CountTokens approximates how many LLM tokens text will cost.
	CountTokens(text string) int
}
