package export

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilenames(t *testing.T) {
	day := time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)
	require.Equal(t, "factures_2024-01-20.csv", DatedFilename("csv", day, "factures"))
	require.Equal(t, "statistiques_month_2024-01-20.csv", DatedFilename("csv", day, "statistiques", "month"))
	require.Equal(t, "analyse_an-1.txt", Filename("txt", "analyse", "an-1"))
	require.Equal(t, "analyse.txt", Filename("txt", "analyse", " "))
}

func TestCSVDocument(t *testing.T) {
	doc, err := CSV("x.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, ContentTypeCSV, doc.ContentType)
	require.Equal(t, "a,b\n", string(doc.Body))

	_, err = CSV("x.csv", func(io.Writer) error { return errors.New("boom") })
	require.Error(t, err)
}

func TestWriteAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Write(rec, Text("analyse_1.txt", "Bulletin")))
	require.Equal(t, 200, rec.Code)
	require.Equal(t, ContentTypeText, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="analyse_1.txt"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "8", rec.Header().Get("Content-Length"))
	require.Equal(t, "Bulletin", rec.Body.String())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, Text("a.txt", "hello"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a.txt"), path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(raw))
}
