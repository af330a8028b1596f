package util

import (
	"net/url"
	"strings"

	"github.com/clipdock/clipdock/internal/config"
)

type URLValidation struct {
	Valid bool
	Error string
}

func ValidateURL(rawURL string) URLValidation {
	if rawURL == "" {
		return URLValidation{false, "url is required"}
	}
	if len(rawURL) > config.MaxURLLength {
		return URLValidation{false, "url is too long"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return URLValidation{false, "invalid url format"}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return URLValidation{false, "only http/https urls are allowed"}
	}

	if strings.TrimSpace(parsed.Hostname()) == "" {
		return URLValidation{false, "invalid url format"}
	}

	return URLValidation{true, ""}
}
