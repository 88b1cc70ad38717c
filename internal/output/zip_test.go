package output

import (
	"archive/zip"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name string
	data []byte
}

func readZip(t *testing.T, path string) []zipEntry {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var out []zipEntry
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		require.NoError(t, err)
		out = append(out, zipEntry{name: f.Name, data: b})
	}
	return out
}
