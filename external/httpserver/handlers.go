package httpserver

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/siriusverse/voicebridge/internal/config"
	"github.com/siriusverse/voicebridge/internal/job"
	"github.com/siriusverse/voicebridge/internal/metrics"
)

type handlers struct {
	cfg     *config.Config
	manager *job.Manager
	metrics *metrics.Metrics
}

type providerWebhookRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (h *handlers) createTranscription(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")
	if !strings.Contains(contentType, "multipart/form-data") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart/form-data"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no audio file provided"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}
	defer func() {
		_ = f.Close()
	}()
	audio, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}
	if len(audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is empty"})
		return
	}

	jobID, err := h.manager.Submit(c.Request.Context(), audio)
	if err != nil {
		slog.Error("failed to create transcription job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create transcription job"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": jobID})
}

func (h *handlers) getTranscription(c *gin.Context) {
	j, err := h.manager.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("failed to fetch transcription job", "error", err, "job_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch transcription status"})
		return
	}
	if j == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transcription not found"})
		return
	}

	resp := gin.H{"status": string(j.Status)}
	if j.Transcript != "" {
		resp["transcript"] = j.Transcript
	}
	if j.ErrorReason != "" {
		resp["error"] = j.ErrorReason
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) providerWebhook(c *gin.Context) {
	if !h.authorizeWebhook(c.GetHeader("Authorization")) {
		h.metrics.WebhookRejected.Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req providerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing transcript id"})
		return
	}

	err := h.manager.HandleProviderNotification(c.Request.Context(), job.ProviderNotification{
		ProviderJobID: req.ID,
		Status:        req.Status,
		Text:          req.Text,
		Error:         req.Error,
	})
	if err != nil {
		slog.Error("failed to apply provider notification", "error", err, "provider_job_id", req.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process notification"})
		return
	}
	h.metrics.WebhookAccepted.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) authorizeWebhook(header string) bool {
	expected := "Bearer " + h.cfg.ProviderWebhookSecret
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}
