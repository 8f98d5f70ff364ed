package video

import (
	"errors"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	ErrNotYouTube     = errors.New("not a YouTube URL")
	ErrMissingVideoID = errors.New("could not find a video id in URL")

	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractYouTubeID returns the 11 character video id from a watch, short
// link, shorts, live or embed URL. A bare id is accepted as is.
func ExtractYouTubeID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrMissingVideoID
	}
	if youtubeIDPattern.MatchString(s) {
		return s, nil
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", ErrNotYouTube
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		dir, base := path.Split(strings.TrimSuffix(u.Path, "/"))
		switch dir {
		case "/shorts/", "/live/", "/embed/", "/v/":
			id = base
		}
	default:
		return "", ErrNotYouTube
	}

	if !youtubeIDPattern.MatchString(id) {
		return "", ErrMissingVideoID
	}
	return id, nil
}
