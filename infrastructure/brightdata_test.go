package infrastructure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

func TestBrightDataClient_TriggerExtraction(t *testing.T) {
	var gotQuery map[string]string
	var gotBody []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/trigger", r.URL.Path)
		assert.Equal(t, "Bearer api-token", r.Header.Get("Authorization"))
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"snapshot_id":"s_abc"}`))
	}))
	defer srv.Close()

	client := NewBrightDataClient(srv.URL+"/", "api-token", "gd_test", 5*time.Second, zap.NewNop())
	id, err := client.TriggerExtraction(context.Background(), domain.ExtractionRequest{
		VideoURL:    domain.WatchURL("abc12345678"),
		CallbackURL: "https://notes.example.com/api/webhooks/brightdata?attempt=a1",
		NotifyURL:   "https://notes.example.com/api/webhooks/brightdata/notify",
		AuthToken:   "shh",
	})
	require.NoError(t, err)
	assert.Equal(t, "s_abc", id)

	assert.Equal(t, "gd_test", gotQuery["dataset_id"])
	assert.Equal(t, "https://notes.example.com/api/webhooks/brightdata?attempt=a1", gotQuery["endpoint"])
	assert.Equal(t, "https://notes.example.com/api/webhooks/brightdata/notify", gotQuery["notify"])
	assert.Equal(t, "Bearer shh", gotQuery["auth_header"])
	assert.Equal(t, "json", gotQuery["format"])
	assert.Equal(t, "true", gotQuery["uncompressed_webhook"])
	require.Len(t, gotBody, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc12345678", gotBody[0]["url"])
}

func TestBrightDataClient_Errors(t *testing.T) {
	status := http.StatusBadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"dataset not found"}`))
	}))
	defer srv.Close()
	client := NewBrightDataClient(srv.URL, "api-token", "gd_test", 5*time.Second, zap.NewNop())
	req := domain.ExtractionRequest{VideoURL: domain.WatchURL("abc12345678")}

	_, err := client.TriggerExtraction(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrProviderRejected)
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 400, perr.Status)
	assert.Equal(t, "dataset not found", perr.Message)

	status = http.StatusBadGateway
	_, err = client.TriggerExtraction(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	srv.Close()
	_, err = client.TriggerExtraction(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	unconfigured := NewBrightDataClient(srv.URL, "", "gd_test", time.Second, zap.NewNop())
	_, err = unconfigured.TriggerExtraction(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestWebhookReceiver_Authenticate(t *testing.T) {
	r := NewWebhookReceiver("shh", zap.NewNop())
	assert.NoError(t, r.Authenticate("Bearer shh"))
	for _, h := range []string{"", "shh", "Bearer", "Bearer wrong", "Basic shh", "bearer shh"} {
		assert.ErrorIs(t, r.Authenticate(h), domain.ErrUnauthorized, h)
	}

	open := NewWebhookReceiver("", zap.NewNop())
	assert.ErrorIs(t, open.Authenticate("Bearer "), domain.ErrUnauthorized)
}

func TestParseDelivery_NormalizesProviderFields(t *testing.T) {
	description := strings.Repeat("é", 600)
	body := `[{
		"video_id": "abc12345678",
		"url": "https://www.youtube.com/watch?v=abc12345678",
		"title": "  Go Concurrency  ",
		"formatted_transcript": [{"start_time": 0, "text": "hello"}, {"start_time": 1, "text": " world "}],
		"video_length": 272,
		"preview_image": "https://i.ytimg.com/vi/abc12345678/hq.jpg",
		"date_posted": "2024-03-01T10:00:00Z",
		"youtuber": "@fallback",
		"handle_name": "@gophers",
		"views": "1,204",
		"likes": 33,
		"subscribers": null,
		"description": "` + description + `",
		"avatar_img_channel": "https://yt3.ggpht.com/a.jpg",
		"channel_url": "https://www.youtube.com/@gophers",
		"unknown_field": {"nested": true}
	}, {"video_id": "other000000"}]`

	p, err := ParseDelivery([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "abc12345678", p.VideoID)
	assert.Equal(t, "hello world", p.Transcript)
	assert.Equal(t, "Go Concurrency", p.Title)
	assert.Equal(t, "gophers", p.Channel)
	assert.Equal(t, 5, p.DurationMinutes)
	assert.Equal(t, "https://i.ytimg.com/vi/abc12345678/hq.jpg", p.ThumbnailURL)
	assert.Equal(t, "2024-03-01T10:00:00Z", p.Metadata.PublishedAt)
	assert.Equal(t, int64(1204), p.Metadata.Views)
	assert.Equal(t, int64(33), p.Metadata.Likes)
	assert.Zero(t, p.Metadata.Subscribers)
	assert.Equal(t, 500, len([]rune(p.Metadata.Description)))
	assert.Equal(t, "https://www.youtube.com/@gophers", p.Metadata.ChannelURL)
	assert.Contains(t, string(p.RawResponse), `"handle_name"`)
	assert.NotContains(t, string(p.RawResponse), "other000000")
}

func TestParseDelivery_ObjectAndFallbacks(t *testing.T) {
	p, err := ParseDelivery([]byte(`{"video_id":"abc12345678","transcript":"hello world","youtuber":"@chan"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello world", p.Transcript)
	assert.Equal(t, "chan", p.Channel)
	assert.Zero(t, p.DurationMinutes)

	p, err = ParseDelivery([]byte(`{"video_id":"abc12345678"}`))
	require.NoError(t, err)
	assert.Empty(t, p.Transcript)
}

func TestParseDelivery_Malformed(t *testing.T) {
	for _, body := range []string{``, `[]`, `not json`, `{"transcript":"no id"}`, `[{"title":"x"}]`, `"string"`} {
		_, err := ParseDelivery([]byte(body))
		assert.ErrorIs(t, err, domain.ErrMalformedPayload, body)
	}
}
