package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"rsc.io/pdf"
)

const minLegacyDocChars = 50

func extractPDFText(data []byte) (text string, err error) {
	// rsc.io/pdf panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	runeCount := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		for _, item := range page.Content().Text {
			chunk := strings.TrimSpace(item.S)
			if chunk == "" {
				continue
			}
			if textBuilder.Len() > 0 {
				textBuilder.WriteByte('\n')
				runeCount++
			}
			textBuilder.WriteString(chunk)
			runeCount += utf8.RuneCountInString(chunk)
			if runeCount >= maxExtractedTextRunes {
				return trimToRunes(textBuilder.String(), maxExtractedTextRunes), nil
			}
		}
	}
	return textBuilder.String(), nil
}

// extractDocxText reads the run text of word/document.xml, one line per paragraph.
func extractDocxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract docx text: %w", err)
	}

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", errors.New("extract docx text: word/document.xml missing")
	}

	rc, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("extract docx text: %w", err)
	}
	defer rc.Close()

	var (
		out    strings.Builder
		inText bool
	)
	decoder := xml.NewDecoder(io.LimitReader(rc, MaxFileBytes*4))
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract docx text: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("extract docx text: document is empty")
	}
	return text, nil
}

// extractLegacyDocText keeps the printable ASCII and whitespace of a binary .doc.
func extractLegacyDocText(data []byte) (string, error) {
	text := strings.Map(func(r rune) rune {
		if (r >= 0x20 && r <= 0x7e) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToValidUTF8(string(data), ""))
	text = strings.TrimSpace(text)
	if len(text) <= minLegacyDocChars {
		return "", errors.New("extract doc text: insufficient readable text")
	}
	return text, nil
}
