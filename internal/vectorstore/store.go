package vectorstore

import "context"

// Document is an (embedding, text) pair to be indexed.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
}

// Result is a retrieved chunk with its similarity to the query vector.
type Result struct {
	Content    string
	Similarity float32
}

// Store is a named vector collection supporting nearest-neighbor search.
// Insert order carries no meaning after indexing.
type Store interface {
	// Name returns the collection name.
	Name() string
	// Insert adds documents; no deduplication is performed.
	Insert(ctx context.Context, docs []Document) error
	// Search returns up to topK results ordered by descending similarity,
	// fewer when the collection holds fewer entries.
	Search(ctx context.Context, embedding []float32, topK int) ([]Result, error)
	// Count reports the number of indexed entries.
	Count(ctx context.Context) (int, error)
	// Drop deletes the collection. Dropping an already-gone collection
	// reports success.
	Drop(ctx context.Context) error
}

// Factory opens fresh named collections on a backend.
type Factory interface {
	Open(ctx context.Context, collection string) (Store, error)
}
