package models

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultTopK         = 3
	DefaultMaxFileMB    = 50

	// SourcePreviewChars bounds the length of each source excerpt in a
	// QueryResult.
	SourcePreviewChars = 200
)

var (
	QAPromptTemplate = `Use the following context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context:
%s

Question: %s

Answer:`
)
