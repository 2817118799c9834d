// infrastructure/gin_handlers.go
package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
	"github.com/vitovidale/video-notes-service/usecase"
)

const maxWebhookBody = 32 << 20

type VideoHandlers struct {
	VideoInfoUC      *usecase.VideoInfoUseCase
	StartJobUC       *usecase.StartJobUseCase
	JobStatusUC      *usecase.JobStatusUseCase
	UsageUC          *usecase.UsageUseCase
	RecentVideosUC   *usecase.RecentVideosUseCase
	ReprocessUC      *usecase.ReprocessUseCase
	TranscriptReady  *usecase.TranscriptReadyUseCase
	ProviderNotifyUC *usecase.ProviderNotifyUseCase
	Webhook          *WebhookReceiver
	Metrics          *Metrics
	Logger           *zap.Logger

	// Health dependencies. Redis and RabbitMQ are optional.
	DB       *sql.DB
	Redis    *redis.Client
	RabbitMQ *amqp.Connection
}

// Router wires the routes. auth guards the client-facing API.
func (h *VideoHandlers) Router(auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(h.Logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware())
		router.GET("/metrics", h.Metrics.Handler())
	}

	router.GET("/health", h.HealthCheck)
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Video Notes Service is running!"})
	})

	webhooks := router.Group("/api/webhooks")
	{
		webhooks.POST("/brightdata", h.BrightDataWebhookHandler)
		webhooks.POST("/brightdata/notify", h.BrightDataNotifyHandler)
	}

	api := router.Group("/api")
	api.Use(auth)
	{
		api.POST("/extract-video-info", h.ExtractVideoInfoHandler)
		api.POST("/summarize-video", h.SummarizeVideoHandler)
		api.GET("/check-job-status/:video_id", h.CheckJobStatusHandler)
		api.GET("/user-usage", h.UserUsageHandler)
		api.GET("/recent-videos", h.RecentVideosHandler)
		api.POST("/reprocess/:video_id", h.ReprocessHandler)
	}
	return router
}

type extractVideoInfoRequest struct {
	VideoURL string `json:"video_url"`
	URL      string `json:"url"`
}

func (h *VideoHandlers) ExtractVideoInfoHandler(c *gin.Context) {
	var req extractVideoInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	videoURL := req.VideoURL
	if videoURL == "" {
		videoURL = req.URL
	}

	info, err := h.VideoInfoUC.Execute(c.Request.Context(), videoURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"video_id":         info.VideoID,
		"title":            info.Title,
		"channel":          info.Channel,
		"thumbnail":        info.ThumbnailURL,
		"duration_minutes": info.DurationMinutes,
	})
}

type summarizeVideoRequest struct {
	VideoID         string `json:"video_id"`
	VideoURL        string `json:"video_url"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *VideoHandlers) SummarizeVideoHandler(c *gin.Context) {
	var req summarizeVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, plan := userFromContext(c)

	out, err := h.StartJobUC.Execute(c.Request.Context(), usecase.StartJobInput{
		UserID:          userID,
		PlanTier:        plan,
		VideoID:         req.VideoID,
		VideoURL:        req.VideoURL,
		Title:           req.Title,
		Channel:         req.Channel,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if out.Processing {
		c.JSON(http.StatusOK, gin.H{
			"processing":       true,
			"job_id":           out.VideoID,
			"video_id":         out.VideoID,
			"title":            out.Title,
			"channel":          out.Channel,
			"duration_minutes": out.DurationMinutes,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"video_id":        out.VideoID,
		"title":           out.Title,
		"summary":         out.Summary,
		"processing_type": out.ProcessingType,
	})
}

func (h *VideoHandlers) CheckJobStatusHandler(c *gin.Context) {
	userID, _ := userFromContext(c)
	snap, err := h.JobStatusUC.Execute(c.Request.Context(), userID, c.Param("video_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	switch snap.Status {
	case domain.JobStatusCompleted:
		c.JSON(http.StatusOK, gin.H{
			"status":          snap.Status,
			"title":           snap.Title,
			"summary":         snap.Summary,
			"processing_type": snap.ProcessingType,
		})
	case domain.JobStatusFailed:
		c.JSON(http.StatusOK, gin.H{"status": snap.Status, "error": snap.ErrorMessage})
	default:
		c.JSON(http.StatusOK, gin.H{"status": snap.Status})
	}
}

func (h *VideoHandlers) UserUsageHandler(c *gin.Context) {
	userID, plan := userFromContext(c)
	usage, err := h.UsageUC.Execute(c.Request.Context(), userID, plan)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"minutes_used":     usage.MinutesUsed,
		"minutes_limit":    usage.MinutesLimit,
		"percentage_used":  usage.PercentageUsed,
		"plan_tier":        usage.PlanTier,
		"videos_processed": usage.VideosProcessed,
		"period":           usage.Period,
	})
}

func (h *VideoHandlers) RecentVideosHandler(c *gin.Context) {
	userID, _ := userFromContext(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	videos, err := h.RecentVideosUC.Execute(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]gin.H, 0, len(videos))
	for _, v := range videos {
		items = append(items, gin.H{
			"video_id":         v.VideoID,
			"title":            v.Title,
			"channel":          v.Channel,
			"thumbnail":        v.ThumbnailURL,
			"duration_minutes": v.DurationMinutes,
			"processing_type":  v.ProcessingType,
			"processed_at":     v.ProcessedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"videos": items})
}

func (h *VideoHandlers) ReprocessHandler(c *gin.Context) {
	userID, plan := userFromContext(c)
	job, err := h.ReprocessUC.Execute(c.Request.Context(), userID, plan, c.Param("video_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          job.Status,
		"title":           job.Title,
		"summary":         job.Summary,
		"processing_type": job.ProcessingType,
	})
}

// BrightDataWebhookHandler acknowledges every authenticated, well-formed delivery, whatever
// happened to summarization, so the provider does not redeliver.
func (h *VideoHandlers) BrightDataWebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "could not read body"})
		return
	}

	payload, err := h.Webhook.Receive(c.GetHeader("Authorization"), body, c.Query("attempt"))
	if err != nil {
		h.webhookOutcome(outcomeFor(err))
		c.JSON(statusFor(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	out, err := h.TranscriptReady.Execute(c.Request.Context(), *payload)
	if err != nil {
		h.webhookOutcome("error")
		h.Logger.Error("webhook processing failed", zap.String("video_id", payload.VideoID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
		return
	}
	if out.Matched == 0 {
		h.webhookOutcome("unmatched")
	} else {
		h.webhookOutcome("accepted")
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type notifyRequest struct {
	SnapshotID string `json:"snapshot_id"`
	Status     string `json:"status"`
}

func (h *VideoHandlers) BrightDataNotifyHandler(c *gin.Context) {
	if err := h.Webhook.Authenticate(c.GetHeader("Authorization")); err != nil {
		h.Logger.Warn("notify rejected: bad authorization header")
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": err.Error()})
		return
	}
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SnapshotID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "snapshot_id is required"})
		return
	}

	n, err := h.ProviderNotifyUC.Execute(c.Request.Context(), req.SnapshotID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "jobs_failed": n})
}

func (h *VideoHandlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	healthy := true
	resp := gin.H{}

	resp["database"] = "connected"
	if err := h.DB.PingContext(ctx); err != nil {
		resp["database"] = "error: " + err.Error()
		healthy = false
	}

	if h.Redis != nil {
		resp["redis"] = "connected"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			resp["redis"] = "error: " + err.Error()
			healthy = false
		}
	}

	if h.RabbitMQ != nil {
		resp["rabbitmq"] = "connected"
		if h.RabbitMQ.IsClosed() {
			resp["rabbitmq"] = "disconnected"
			healthy = false
		}
	}

	if !healthy {
		resp["status"] = "DOWN"
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	resp["status"] = "UP"
	c.JSON(http.StatusOK, resp)
}

func (h *VideoHandlers) webhookOutcome(outcome string) {
	if h.Metrics != nil {
		h.Metrics.WebhookDelivery(outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrMalformedPayload):
		return "malformed"
	default:
		return "error"
	}
}
