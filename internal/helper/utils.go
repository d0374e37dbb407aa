package helper

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ShortID returns an 8-hex-char random identifier, used to make collection
// names unique across sessions.
func ShortID() string {
	id := uuid.New()
	return id.String()[:8]
}

// Truncate shortens s to at most n characters, appending an ellipsis when
// anything was cut. Cuts fall on rune boundaries so multibyte text stays
// valid UTF-8.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i] + "..."
		}
		runes++
	}
	return s
}

// CreateFolder makes the directory (and parents) if missing.
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %v", path, err)
	}
	return nil
}

// PrettyPrint dumps v as indented JSON to stdout.
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}
