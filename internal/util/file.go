package util

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ArchiveEntry is one file stored in a CBZ.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// CreateCBZ zips entries, in the given order, into output.
func CreateCBZ(entries []ArchiveEntry, output string) error {
	return WriteAtomic(output, func(w io.Writer) error {
		z := zip.NewWriter(w)

		for _, e := range entries {
			if err := addEntryToZip(z, e); err != nil {
				_ = z.Close()
				return fmt.Errorf("cbz: %s: %w", e.Name, err)
			}
		}

		return z.Close()
	})
}

func addEntryToZip(z *zip.Writer, e ArchiveEntry) error {
	header := &zip.FileHeader{
		Name:     filepath.Base(e.Name),
		Method:   zip.Store,
		Modified: time.Now(),
	}

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = w.Write(e.Data)
	return err
}

// WriteAtomic creates path via a temporary ".part" sibling so that a file at
// path is always complete.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := BeginPart(path)
	f, err := os.Create(tmp)
	if err != nil {
		return FinishPart(tmp, path, err)
	}

	if err := write(f); err != nil {
		_ = f.Close()
		return FinishPart(tmp, path, err)
	}

	return FinishPart(tmp, path, f.Close())
}
