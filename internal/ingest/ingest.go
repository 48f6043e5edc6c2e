// Package ingest turns uploaded files into prompt material: text sections
// for anything readable and base64 media for images and documents.
package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	MaxFileBytes    = 25 * 1024 * 1024
	MaxFiles        = 10
	MaxRequestBytes = 64 * 1024 * 1024

	maxExtractedTextRunes = 200_000
	mediaPreviewChars     = 100
	binaryFallbackNote    = "Note: Text extraction failed, analyzing as binary document."
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

// UnsupportedTypeError carries the rejected extension; it matches ErrUnsupportedFileType.
type UnsupportedTypeError struct {
	Extension string
}

func (e UnsupportedTypeError) Error() string {
	return "Unsupported file type: " + e.Extension
}

func (e UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedFileType
}

// Media is a base64 payload with its MIME type.
type Media struct {
	MIMEType string
	Data     string
}

func (m Media) DataURL() string {
	return "data:" + m.MIMEType + ";base64," + m.Data
}

// Block is the prompt material produced for one file. Either part may be empty.
type Block struct {
	Name  string
	Text  string
	Media *Media
}

// Ingest classifies a file by extension and extracts what the model can use.
func Ingest(name string, data []byte) (Block, error) {
	ext := extension(name)
	block := Block{Name: name}

	switch {
	case isImage(ext):
		block.Media = encode(imageMIMEType(ext), data)
		return block, nil

	case ext == "pdf":
		block.Media = encode(documentMIMEType(ext), data)
		if text, err := extractPDFText(data); err == nil && strings.TrimSpace(text) != "" {
			block.Text = section(name, "Extracted Text:\n"+text)
		}
		return block, nil

	case isText(ext):
		text := strings.ToValidUTF8(string(data), "�")
		block.Text = section(name, "Content:\n"+trimToRunes(text, maxExtractedTextRunes))
		return block, nil
	}

	text, err := extractOffice(ext, data)
	if err == nil {
		block.Text = section(name, "Content:\n"+trimToRunes(text, maxExtractedTextRunes))
		return block, nil
	}
	if binaryFallback(ext) {
		block.Media = encode(documentMIMEType(ext), data)
		block.Text = section(name, binaryFallbackNote)
		return block, nil
	}
	return Block{}, err
}

// ErrorBlock renders a per-file failure as an inline note for the model.
func ErrorBlock(name string, err error) Block {
	return Block{Name: name, Text: section(name, "Error: "+err.Error())}
}

func extractOffice(ext string, data []byte) (string, error) {
	switch ext {
	case "docx":
		return extractDocxText(data)
	case "doc":
		return extractLegacyDocText(data)
	default:
		return "", UnsupportedTypeError{Extension: ext}
	}
}

func section(name, body string) string {
	return fmt.Sprintf("File: %s\n%s\n\n", name, body)
}

func encode(mimeType string, data []byte) *Media {
	return &Media{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}
}

// extension mirrors "last dot segment", so "Dockerfile" yields "dockerfile".
func extension(name string) string {
	base := strings.ToLower(filepath.Base(strings.TrimSpace(name)))
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return base
}

// Compose builds the outgoing user message. When inline is true the media
// is returned for binary parts; otherwise each item is summarised as a
// truncated data URL inside the text.
func Compose(message string, blocks []Block, inline bool) (string, []Media) {
	var (
		texts []string
		media []Media
	)
	for _, block := range blocks {
		if block.Text != "" {
			texts = append(texts, block.Text)
		}
		if block.Media != nil {
			media = append(media, *block.Media)
		}
	}

	var b strings.Builder
	b.WriteString(message)
	if len(texts) > 0 {
		b.WriteString("\n\nText file contents:\n")
		b.WriteString(strings.Join(texts, "\n"))
	}
	if len(media) == 0 || inline {
		return b.String(), media
	}

	lines := make([]string, 0, len(media))
	for i, m := range media {
		lines = append(lines, fmt.Sprintf("File %d: %s...", i+1, truncate(m.DataURL(), mediaPreviewChars)))
	}
	b.WriteString("\n\nImage/Document data (base64):\n")
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func trimToRunes(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}
