package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/saikko/imagesense/internal/config"
	"github.com/saikko/imagesense/internal/encode"
	"github.com/saikko/imagesense/internal/upload"
	"github.com/saikko/imagesense/internal/vision"
)

const (
	detectMaxUploadSize   = 10 << 20 // 10 MiB
	questionMaxUploadSize = 5 << 20  // 5 MiB
)

type handler struct {
	inferrer          vision.Inferrer
	detectValidator   *upload.Validator
	questionValidator *upload.Validator
	started           time.Time
}

func newHandler(cfg *config.Config, inferrer vision.Inferrer) *handler {
	return &handler{
		inferrer:          inferrer,
		detectValidator:   upload.NewValidator(cfg.UploadDir, detectMaxUploadSize),
		questionValidator: upload.NewValidator(cfg.UploadDir, questionMaxUploadSize),
		started:           time.Now(),
	}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Seconds(),
	})
}

// analyze handles the object-detection variant: a fixed JSON-only prompt,
// with the model output run through the extraction fallbacks.
func (h *handler) analyze(c *gin.Context) {
	raw, err := h.runPipeline(c, h.detectValidator, vision.DetectionPrompt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"objects":   vision.ExtractDetections(raw),
		"timestamp": timestamp(),
	})
}

// ask handles the free-form variant: the caller's question is passed through
// verbatim and so is the model's answer.
func (h *handler) ask(c *gin.Context) {
	question := c.PostForm("question")
	if question == "" {
		question = vision.DefaultQuestion
	}
	raw, err := h.runPipeline(c, h.questionValidator, question)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"response":  raw,
		"timestamp": timestamp(),
	})
}

// runPipeline takes a request through validate, encode and infer. The saved
// upload is removed before returning, on every branch; a removal failure is
// logged but never reaches the response.
func (h *handler) runPipeline(c *gin.Context, validator *upload.Validator, prompt string) (string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return "", fmt.Errorf("%w: %v", upload.ErrNoFile, err)
	}

	saved, err := validator.Save(form.File["image"])
	if err != nil {
		return "", err
	}
	defer func() {
		if err := saved.Remove(); err != nil {
			log.Warn().Err(err).Str("path", saved.Path).Msg("failed to remove uploaded file")
		}
	}()

	imageB64, err := encode.File(saved.Path)
	if err != nil {
		return "", err
	}

	// The inference call is deliberately detached from the client's
	// connection: an aborted request does not cancel an in-flight call.
	// The client's own timeout still bounds it.
	return h.inferrer.Infer(context.WithoutCancel(c.Request.Context()), imageB64, prompt)
}

// respondError maps the error taxonomy to HTTP statuses. First matching
// rule wins; anything unrecognized becomes a generic 500 so internals never
// leak to callers.
func (h *handler) respondError(c *gin.Context, err error) {
	var (
		invalidType *upload.InvalidFileTypeError
		tooLarge    *upload.TooLargeError
		provider    *vision.ProviderError
	)
	switch {
	case errors.Is(err, upload.ErrNoFile), errors.Is(err, upload.ErrTooManyFiles):
		respondErrorJSON(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		respondErrorJSON(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidType):
		respondErrorJSON(c, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, vision.ErrTimeout):
		respondErrorJSON(c, http.StatusGatewayTimeout, "vision api request timed out")
	case errors.As(err, &provider):
		respondErrorJSON(c, provider.Status, provider.Message)
	case errors.Is(err, vision.ErrMissingAPIKey):
		log.Error().Err(err).Msg("analysis request failed")
		respondErrorJSON(c, http.StatusInternalServerError, "server is not configured for image analysis")
	default:
		log.Error().Err(err).Msg("analysis request failed")
		respondErrorJSON(c, http.StatusInternalServerError, "internal server error")
	}
}

func respondErrorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status":    "error",
		"error":     message,
		"timestamp": timestamp(),
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
