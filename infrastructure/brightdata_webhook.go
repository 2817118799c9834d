// infrastructure/brightdata_webhook.go
package infrastructure

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

const maxDescriptionRunes = 500

// WebhookReceiver authenticates provider callbacks and maps the provider's field names onto
// domain.TranscriptPayload.
type WebhookReceiver struct {
	Secret string
	Logger *zap.Logger
}

func NewWebhookReceiver(secret string, logger *zap.Logger) *WebhookReceiver {
	return &WebhookReceiver{Secret: secret, Logger: logger}
}

// Authenticate checks the Authorization header against the shared secret.
func (r *WebhookReceiver) Authenticate(header string) error {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok || token == "" || r.Secret == "" {
		return domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(r.Secret)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

// Receive authenticates and parses one delivery. attemptID comes from the callback URL.
func (r *WebhookReceiver) Receive(authHeader string, body []byte, attemptID string) (*domain.TranscriptPayload, error) {
	if err := r.Authenticate(authHeader); err != nil {
		r.Logger.Warn("webhook rejected: bad authorization header")
		return nil, err
	}
	payload, err := ParseDelivery(body)
	if err != nil {
		r.Logger.Warn("webhook rejected: malformed payload", zap.Error(err))
		return nil, err
	}
	payload.AttemptID = attemptID
	return payload, nil
}

// deliveryRecord lists the provider fields we read. Everything else is ignored.
type deliveryRecord struct {
	VideoID             string          `json:"video_id"`
	Transcript          json.RawMessage `json:"transcript"`
	FormattedTranscript json.RawMessage `json:"formatted_transcript"`
	TranscriptLanguage  string          `json:"transcript_language"`
	Title               string          `json:"title"`
	VideoLength         flexNumber      `json:"video_length"`
	PreviewImage        string          `json:"preview_image"`
	DatePosted          string          `json:"date_posted"`
	HandleName          string          `json:"handle_name"`
	Youtuber            string          `json:"youtuber"`
	Views               flexNumber      `json:"views"`
	Likes               flexNumber      `json:"likes"`
	Subscribers         flexNumber      `json:"subscribers"`
	Description         string          `json:"description"`
	AvatarImgChannel    string          `json:"avatar_img_channel"`
	ChannelURL          string          `json:"channel_url"`
}

// ParseDelivery accepts a single object or an array whose first element is the delivery.
func ParseDelivery(body []byte) (*domain.TranscriptPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrMalformedPayload)
	}

	raw := json.RawMessage(body)
	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: empty array", domain.ErrMalformedPayload)
		}
		raw = items[0]
	}

	var rec deliveryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	videoID := strings.TrimSpace(rec.VideoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: video_id is required", domain.ErrMalformedPayload)
	}

	transcript := transcriptText(rec.Transcript)
	if transcript == "" {
		transcript = transcriptText(rec.FormattedTranscript)
	}

	channel := rec.HandleName
	if channel == "" {
		channel = rec.Youtuber
	}

	payload := &domain.TranscriptPayload{
		VideoID:      videoID,
		Transcript:   transcript,
		Title:        strings.TrimSpace(rec.Title),
		Channel:      strings.TrimPrefix(strings.TrimSpace(channel), "@"),
		ThumbnailURL: rec.PreviewImage,
		Metadata: domain.VideoMetadata{
			PublishedAt:    rec.DatePosted,
			Views:          int64(rec.Views),
			Likes:          int64(rec.Likes),
			Subscribers:    int64(rec.Subscribers),
			Description:    truncateRunes(rec.Description, maxDescriptionRunes),
			ChannelAvatar:  rec.AvatarImgChannel,
			ChannelURL:     rec.ChannelURL,
			TranscriptLang: rec.TranscriptLanguage,
		},
		RawResponse: raw,
	}
	if rec.VideoLength > 0 {
		payload.DurationMinutes = domain.MinutesFromSeconds(int(rec.VideoLength))
	}
	return payload, nil
}

// transcriptText accepts a plain string or a list of timed segments with a text field.
func transcriptText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var segments []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err != nil {
		return ""
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// flexNumber decodes counters the provider sends as numbers, numeric strings or null.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// Unparseable counters are treated as absent.
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}
