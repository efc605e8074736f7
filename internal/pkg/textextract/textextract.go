// Package textextract turns uploaded source files into the plain text stored
// in the knowledge base.
package textextract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyContent      = errors.New("no extractable text")
)

type Format string

const (
	FormatText     Format = "text"
	FormatPDF      Format = "pdf"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// DetectFormat maps a file name extension to a Format.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".csv":
		return FormatCSV, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Extract reads r fully and returns its text according to format.
func Extract(r io.Reader, format Format) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload failed: %w", err)
	}
	var text string
	switch format {
	case FormatPDF:
		text, err = PDF(b)
	case FormatCSV:
		text, err = CSV(b)
	case FormatMarkdown, FormatText:
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: content is not valid UTF-8", ErrUnsupportedFormat)
		}
		text = string(b)
	default:
		return "", ErrUnsupportedFormat
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// PDF extracts the plain text layer of a PDF document.
func PDF(b []byte) (string, error) {
	if len(b) == 0 {
		return "", ErrEmptyContent
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}

// CSV flattens every data row into "header: value" lines, one blank line
// between rows, so the table can be quoted in prompts.
func CSV(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte("\ufeff"))
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return "", ErrEmptyContent
	}
	if err != nil {
		return "", fmt.Errorf("parse csv header failed: %w", err)
	}

	var sb strings.Builder
	rows := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv row %d failed: %w", rows+1, err)
		}
		if rows > 0 {
			sb.WriteString("\n")
		}
		for i, value := range record {
			name := fmt.Sprintf("column%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				name = strings.TrimSpace(header[i])
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(value))
			sb.WriteString("\n")
		}
		rows++
	}
	return sb.String(), nil
}
