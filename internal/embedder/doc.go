// Package embedder generates vector embeddings for text segments and
// search queries.
//
// Two providers are available. OpenAIProvider calls the OpenAI embeddings
// API with retry and exponential backoff. LocalProvider derives a
// deterministic vector from the text content with no network access, which
// makes it suitable for tests and for installations that cannot reach an
// external API.
//
// Provider selection is environment driven:
//
//	GRAMMATA_EMBEDDING_PROVIDER  explicit choice: "openai" or "local"
//	OPENAI_API_KEY               enables the OpenAI provider when set
//
// When neither is set the local provider is used. Embeddings are cached
// in an LRU keyed by the SHA-256 of the input text, so re-embedding the
// same segment during repeated ingestion runs is free.
//
// Usage:
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//		return err
//	}
//	defer emb.Close()
//
//	vec, err := emb.Embed(ctx, "Μῆνιν ἄειδε, θεά")
package embedder
