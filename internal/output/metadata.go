package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"
)

const DefaultMetadataFile = "manga_metadata.json"

// WriteMetadata stores records as an indented JSON array. Non-ASCII and
// HTML characters are written as is.
func WriteMetadata(path string, records []providers.ChapterRecord) error {
	out := make([]providers.ChapterRecord, len(records))
	for i, r := range records {
		if r.Images == nil {
			r.Images = []string{}
		}
		out[i] = r
	}

	err := util.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	})
	if err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}

	return nil
}

func ReadMetadata(path string) ([]providers.ChapterRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []providers.ChapterRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}

	return records, nil
}
