package vfs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLastModifiedTriesEachKnownFormat(t *testing.T) {
	cases := []string{
		"2023-05-01T12:00:00.000000",
		"2023-05-01T12:00:00",
		"Mon, 01 May 2023 12:00:00 GMT",
	}

	for _, c := range cases {
		got := parseLastModified(c)
		assert.Equal(t, 2023, got.Year(), "input %q", c)
	}
}

func TestParseLastModifiedFallsBackToNow(t *testing.T) {
	got := parseLastModified("not a timestamp")
	assert.False(t, got.IsZero())
}

func TestStatFromHeadersMarksDirectoryContentType(t *testing.T) {
	h := http.Header{}
	h.Set("content-type", directoryContentType)
	h.Set("content-length", "0")

	stat := statFromHeaders(h, false)
	assert.True(t, stat.IsDir)
	assert.Equal(t, int64(0), stat.Size)
}

func TestStatFromHeadersAccountOrContainerAlwaysDirectory(t *testing.T) {
	h := http.Header{}
	stat := statFromHeaders(h, true)
	assert.True(t, stat.IsDir)
}
