package vectorstore

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// ChromemFactory opens collections on a chromem-go database, in-memory by
// default or persisted under a directory when one is configured.
type ChromemFactory struct {
	db *chromem.DB
}

func NewChromemFactory(path string) (*ChromemFactory, error) {
	if path == "" {
		return &ChromemFactory{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}
	return &ChromemFactory{db: db}, nil
}

func (f *ChromemFactory) Open(ctx context.Context, collection string) (Store, error) {
	// cosine distance, consistent between insert and query
	metadata := map[string]string{
		"hnsw:space": "cosine",
	}
	c, err := f.db.GetOrCreateCollection(collection, metadata, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}
	return &chromemStore{db: f.db, collection: c, name: collection}, nil
}

type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

func (s *chromemStore) Name() string { return s.name }

func (s *chromemStore) Insert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
		})
	}
	if err := s.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

func (s *chromemStore) Search(ctx context.Context, embedding []float32, topK int) ([]Result, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must not be empty")
	}
	// chromem rejects nResults larger than the collection size
	if n := s.collection.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}
	results, err := s.collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{Content: r.Content, Similarity: r.Similarity})
	}
	return out, nil
}

func (s *chromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *chromemStore) Drop(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}
