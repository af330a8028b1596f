package util

import "strings"

// ToUserError maps raw yt-dlp diagnostics to a message safe to show a
// caller. Unrecognized causes keep the (already truncated) diagnostic.
func ToUserError(message string) string {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "video unavailable"), strings.Contains(msg, "private video"):
		return "This video is unavailable or has been removed"
	case strings.Contains(msg, "age-restricted"), strings.Contains(msg, "age restricted"):
		return "This video is age-restricted"
	case strings.Contains(msg, "geo restricted"), strings.Contains(msg, "not available in your country"):
		return "This video isn't available in the server's region"
	case strings.Contains(msg, "unsupported url"):
		return "This website isn't supported"
	case strings.Contains(msg, "http error 404"), strings.Contains(msg, "404 not found"):
		return "Video not found, it may have been deleted"
	case strings.Contains(msg, "no video formats"), strings.Contains(msg, "requested format not available"):
		return "No downloadable formats found"
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return "Download timed out"
	}
	return message
}
