package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Clip.mp4", "My Clip.mp4"},
		{"a/b\\c:d.mp4", "a_b_c_d.mp4"},
		{"  spaced   out  .mp4", "spaced out .mp4"},
		{"quote\"pipe|star*.webm", "quote_pipe_star_.webm"},
		{"ctrl\x00\x1fchars.mkv", "ctrl__chars.mkv"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, SanitizeFilename(tc.in))
	}

	long := strings.Repeat("x", 300) + ".mp4"
	require.Len(t, SanitizeFilename(long), 200)
}

func TestSanitizeFilenameKeepsRunesWhole(t *testing.T) {
	// 100 three-byte runes; a byte cap of 200 falls inside the 67th
	long := strings.Repeat("動", 100)
	got := SanitizeFilename(long)
	require.True(t, utf8.ValidString(got))
	require.LessOrEqual(t, len(got), 200)
	require.Equal(t, strings.Repeat("動", 66), got)
}

func TestToASCIIFilename(t *testing.T) {
	require.Equal(t, "clip.mp4", ToASCIIFilename("clip.mp4"))
	require.Equal(t, "caf_.mp4", ToASCIIFilename("café.mp4"))
	require.Equal(t, "____.mp4", ToASCIIFilename("動画タイ.mp4"))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 100))
	require.Equal(t, "short", Truncate("  short  ", 100))
	require.Equal(t, "abcde... (truncated)", Truncate("abcdefghij", 5))
	require.Equal(t, "abc", Truncate("abc", 0))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// a 9-byte cut of "héllo wörld" lands inside the two-byte ö
	got := Truncate("héllo wörld", 9)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, "héllo w... (truncated)", got)
}

func TestShortID(t *testing.T) {
	require.Equal(t, "12345678", ShortID("123456789abc"))
	require.Equal(t, "abc", ShortID("abc"))
}

func TestValidateURL(t *testing.T) {
	require.True(t, ValidateURL("https://example.com/watch?v=1").Valid)
	require.True(t, ValidateURL("http://example.com").Valid)

	tests := []struct {
		url, wantErr string
	}{
		{"", "url is required"},
		{"ftp://example.com/file", "only http/https urls are allowed"},
		{"file:///etc/passwd", "only http/https urls are allowed"},
		{"https://", "invalid url format"},
		{"not a url at all", "only http/https urls are allowed"},
		{"https://" + strings.Repeat("a", 3000), "url is too long"},
	}
	for _, tc := range tests {
		got := ValidateURL(tc.url)
		require.False(t, got.Valid, "url %q", tc.url)
		require.Equal(t, tc.wantErr, got.Error, "url %q", tc.url)
	}
}

func TestToUserError(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ERROR: Video unavailable", "This video is unavailable or has been removed"},
		{"ERROR: This video is age-restricted", "This video is age-restricted"},
		{"ERROR: not available in your country", "This video isn't available in the server's region"},
		{"ERROR: Unsupported URL: https://x", "This website isn't supported"},
		{"HTTP Error 404: Not Found", "Video not found, it may have been deleted"},
		{"ERROR: No video formats found", "No downloadable formats found"},
		{"read operation timed out", "Download timed out"},
		{"something else entirely", "something else entirely"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, ToUserError(tc.in))
	}
}
