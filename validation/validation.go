package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nijaru/yt-adwatch/errors"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateVideoID checks the 11-character YouTube video ID shape.
func ValidateVideoID(id string) error {
	const op = "validation.ValidateVideoID"

	if id == "" {
		return errors.Transcription(op, nil, "video ID is required")
	}
	if !videoIDPattern.MatchString(id) {
		return errors.Transcription(op, nil, "invalid video ID: "+id)
	}
	return nil
}

// ParseVideoID accepts a bare video ID or a watch, youtu.be, shorts or embed
// URL and returns the video ID.
func ParseVideoID(input string) (string, error) {
	const op = "validation.ParseVideoID"

	input = strings.TrimSpace(input)
	if err := ValidateVideoID(input); err == nil {
		return input, nil
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", errors.Transcription(op, err, "invalid URL format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", errors.Transcription(op, nil, "URL must use HTTP or HTTPS")
	}

	host := strings.TrimPrefix(parsedURL.Hostname(), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(parsedURL.Path, "/")
	case "youtube.com", "music.youtube.com":
		switch {
		case parsedURL.Path == "/watch":
			id = parsedURL.Query().Get("v")
		case strings.HasPrefix(parsedURL.Path, "/shorts/"):
			id = strings.TrimPrefix(parsedURL.Path, "/shorts/")
		case strings.HasPrefix(parsedURL.Path, "/embed/"):
			id = strings.TrimPrefix(parsedURL.Path, "/embed/")
		}
	default:
		return "", errors.Transcription(op, nil, "only YouTube URLs are supported")
	}

	id = strings.Trim(id, "/")
	if err := ValidateVideoID(id); err != nil {
		return "", err
	}
	return id, nil
}
