package errs

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmptyDocument          = errors.New("no extractable text in document")
	ErrChunkingFailed         = errors.New("chunking failed")
	ErrEmbeddingFailed        = errors.New("embedding failed")
	ErrIndexCreationFailed    = errors.New("index creation failed")
	ErrRetrievalFailed        = errors.New("retrieval failed")
	ErrGenerationFailed       = errors.New("generation failed")
	ErrEmptyQuestion          = errors.New("question is empty")
	ErrPipelineNotInitialized = errors.New("pipeline not initialized")

	// Generation sub-categories, distinguished so callers can show
	// actionable guidance instead of a generic failure.
	ErrAuthFailed    = errors.New("authentication failed")
	ErrQuotaExceeded = errors.New("quota exceeded")
)

func IsEmptyDocument(err error) bool {
	return errors.Is(err, ErrEmptyDocument)
}

func IsPipelineNotInitialized(err error) bool {
	return errors.Is(err, ErrPipelineNotInitialized)
}

func IsAuthFailed(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
