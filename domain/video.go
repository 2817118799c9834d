// domain/video.go
package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	youtubeURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?youtube\.com/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/(?:embed|shorts)/([A-Za-z0-9_-]{11})`),
	}
	videoIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// VideoInfo is the metadata captured before a job starts.
type VideoInfo struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ExtractVideoID returns the 11-character id from a YouTube watch, short, embed or
// youtu.be URL.
func ExtractVideoID(rawURL string) (string, error) {
	u := strings.TrimSpace(rawURL)
	for _, p := range youtubeURLPatterns {
		if m := p.FindStringSubmatch(u); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVideoURL, rawURL)
}

func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ParseISODuration parses the P#DT#H#M#S form used by the YouTube Data API into seconds.
// Unparseable input yields 0; live streams report P0D.
func ParseISODuration(d string) int {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(d))
	if m == nil {
		return 0
	}
	total := 0
	for i, mult := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * mult
	}
	return total
}

// MinutesFromSeconds rounds to the nearest minute with a floor of one minute.
func MinutesFromSeconds(seconds int) int {
	minutes := (seconds + 30) / 60
	if minutes < 1 {
		return 1
	}
	return minutes
}
