package textextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"paper.pdf":      FormatPDF,
		"PAPER.PDF":      FormatPDF,
		"data.csv":       FormatCSV,
		"notes.md":       FormatMarkdown,
		"notes.markdown": FormatMarkdown,
		"plain.txt":      FormatText,
	}
	for name, want := range cases {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := DetectFormat("image.png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCSVFlattensRows(t *testing.T) {
	in := "\ufeffname, year ,\nBERT,2018,extra\nGPT, 2018\n"
	got, err := CSV([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, "name: BERT\nyear: 2018\ncolumn3: extra\n\nname: GPT\nyear: 2018\n", got)
}

func TestCSVHeaderOnly(t *testing.T) {
	got, err := CSV([]byte("a,b\n"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Extract(strings.NewReader("a,b\n"), FormatCSV)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtractMarkdownVerbatim(t *testing.T) {
	md := "# Title\n\nSome *text*.\n"
	got, err := Extract(strings.NewReader(md), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, md, got)
}

func TestExtractRejectsInvalidInput(t *testing.T) {
	_, err := Extract(strings.NewReader("   \n"), FormatText)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = Extract(strings.NewReader("\xff\xfe"), FormatMarkdown)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Extract(strings.NewReader("not a pdf"), FormatPDF)
	assert.Error(t, err)
}
