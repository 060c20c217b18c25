package pathmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAccountContainerObjectLevels(t *testing.T) {
	cases := []struct {
		raw           string
		wantContainer string
		wantObject    string
	}{
		{"", "", ""},
		{"/", "", ""},
		{"//", "", ""},
		{"sftp_tests", "sftp_tests", ""},
		{"/sftp_tests/", "sftp_tests", ""},
		{"sftp_tests/nested/file.txt", "sftp_tests", "nested/file.txt"},
		{"//sftp_tests//nested//file.txt//", "sftp_tests", "nested/file.txt"},
	}

	for _, tc := range cases {
		p := Split(tc.raw)
		assert.Equal(t, tc.wantContainer, p.Container(), "raw=%q", tc.raw)
		assert.Equal(t, tc.wantObject, p.Object(), "raw=%q", tc.raw)
	}
}

func TestJoinRoundTripsCanonicalForm(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "/"},
		{"///", "/"},
		{"sftp_tests", "/sftp_tests"},
		{"/sftp_tests/", "/sftp_tests"},
		{"sftp_tests/nested/file.txt", "/sftp_tests/nested/file.txt"},
	}

	for _, tc := range cases {
		got := Split(tc.raw).Join()
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
	}
}

func TestLevelPredicates(t *testing.T) {
	assert.True(t, Split("").IsAccountLevel())
	assert.True(t, Split("c").IsContainerLevel())
	assert.True(t, Split("c/o").IsObjectLevel())
	assert.False(t, Split("c").IsObjectLevel())
}

func TestBase(t *testing.T) {
	assert.Equal(t, "", Split("").Base())
	assert.Equal(t, "sftp_tests", Split("sftp_tests").Base())
	assert.Equal(t, "file.txt", Split("sftp_tests/nested/file.txt").Base())
	assert.Equal(t, "dir", Split("sftp_tests/dir/").Base())
}

func TestQuotedSegmentsRoundTripNonASCII(t *testing.T) {
	p := Split("ünïcode/nested dir/☃.txt")
	assert.NotEmpty(t, p.QuotedContainer())
	assert.Contains(t, p.QuotedObject(), "/")
}
