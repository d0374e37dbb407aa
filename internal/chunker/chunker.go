package chunker

import (
	"strings"

	"docqa/internal/errs"
	"docqa/internal/models"
)

// separators are tried coarsest first; a piece that fits no separator is
// emitted whole even when it exceeds the chunk size.
var separators = []string{"\n\n", "\n", " "}

// Splitter splits text into overlapping, bounded-size chunks.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = models.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split produces the ordered chunk sequence for text. Empty or
// whitespace-only input yields an empty sequence; non-empty input that
// produces no chunks is a chunking failure.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	pieces := s.splitRecursive(text, separators)
	chunks := s.merge(pieces)
	if len(chunks) == 0 {
		return nil, errs.ErrChunkingFailed
	}
	return chunks, nil
}

// splitRecursive breaks text into pieces no larger than the chunk size,
// descending to finer separators only where the current one leaves a piece
// too large. Separators stay attached to the preceding piece so joining
// pieces reconstructs the original text.
func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		// Atomic oversized token, emitted as-is.
		return []string{text}
	}
	sep := seps[0]
	if !strings.Contains(text, sep) {
		return s.splitRecursive(text, seps[1:])
	}
	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= s.chunkSize {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.splitRecursive(part, seps[1:])...)
		}
	}
	return pieces
}

// merge joins consecutive pieces until the running length would exceed the
// chunk size, seeding each new chunk with trailing pieces of its
// predecessor totalling at most chunkOverlap characters.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur []string
	total := 0

	emit := func() {
		if len(cur) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(cur, ""))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, p := range pieces {
		if total > 0 && total+len(p) > s.chunkSize {
			emit()
			for total > s.chunkOverlap || (total > 0 && total+len(p) > s.chunkSize) {
				total -= len(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += len(p)
	}
	emit()

	return chunks
}
