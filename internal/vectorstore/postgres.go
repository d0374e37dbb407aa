package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docqa/internal/config"
)

// vectorSize must match the dimensionality of the configured embedding
// model. nomic-embed-text and the other 768-dim models fit as-is.
const vectorSize = 768

type pgDocument struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector(768)"`
	Similarity    float32         `bun:"similarity,scanonly"`
}

// PostgresFactory opens collections as per-session tables on a
// pgvector-enabled Postgres (Supabase works).
type PostgresFactory struct {
	db *bun.DB
}

func NewPostgresFactory(cfg *config.StoreConfig) *PostgresFactory {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PostgresFactory{db: db}
}

func (f *PostgresFactory) Close() error {
	return f.db.Close()
}

func (f *PostgresFactory) Open(ctx context.Context, collection string) (Store, error) {
	if _, err := f.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, fmt.Errorf("failed to enable pgvector: %v", err)
	}
	_, err := f.db.NewCreateTable().
		Model((*pgDocument)(nil)).
		ModelTableExpr("?", bun.Ident(collection)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection table: %v", err)
	}
	return &postgresStore{db: f.db, name: collection}, nil
}

type postgresStore struct {
	db   *bun.DB
	name string
}

func (s *postgresStore) Name() string { return s.name }

func (s *postgresStore) Insert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]pgDocument, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != vectorSize {
			return fmt.Errorf("embedding dimension %d does not match vector(%d) column", len(doc.Embedding), vectorSize)
		}
		rows = append(rows, pgDocument{
			Content:   doc.Content,
			Embedding: pgvector.NewVector(doc.Embedding),
		})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		ModelTableExpr("? AS d", bun.Ident(s.name)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert documents: %v", err)
	}
	return nil
}

func (s *postgresStore) Search(ctx context.Context, embedding []float32, topK int) ([]Result, error) {
	vec := pgvector.NewVector(embedding)
	var rows []pgDocument
	err := s.db.NewSelect().
		Model(&rows).
		ModelTableExpr("? AS d", bun.Ident(s.name)).
		Column("content").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vec).
		OrderExpr("embedding <=> ?", vec).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, Result{Content: row.Content, Similarity: row.Similarity})
	}
	return out, nil
}

func (s *postgresStore) Count(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().
		Model((*pgDocument)(nil)).
		ModelTableExpr("? AS d", bun.Ident(s.name)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %v", err)
	}
	return count, nil
}

func (s *postgresStore) Drop(ctx context.Context) error {
	_, err := s.db.NewDropTable().
		Model((*pgDocument)(nil)).
		ModelTableExpr("?", bun.Ident(s.name)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop collection table: %v", err)
	}
	return nil
}
