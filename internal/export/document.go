// Package export holds the download convention shared by every exported
// document: file naming, content type and attachment delivery.
package export

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Content types of exported documents.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// FileDateLayout formats the date component of export file names.
const FileDateLayout = "2006-01-02"

// Document is a rendered payload ready to be downloaded.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Filename joins the name parts with underscores and appends ext. Blank
// parts are skipped.
func Filename(ext string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_") + "." + ext
}

// DatedFilename names a document after its entity and the given day.
func DatedFilename(ext string, day time.Time, parts ...string) string {
	return Filename(ext, append(parts, day.Format(FileDateLayout))...)
}

// CSV renders a CSV document through write.
func CSV(filename string, write func(io.Writer) error) (Document, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return Document{}, err
	}
	return Document{Filename: filename, ContentType: ContentTypeCSV, Body: buf.Bytes()}, nil
}

// Text wraps a plain text body.
func Text(filename, body string) Document {
	return Document{Filename: filename, ContentType: ContentTypeText, Body: []byte(body)}
}

// Write serves doc as an attachment.
func Write(w http.ResponseWriter, doc Document) error {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(doc.Body)
	return err
}

// WriteFile stores doc under dir and returns the written path.
func WriteFile(dir string, doc Document) (string, error) {
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
