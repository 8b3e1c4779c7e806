package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"wax-intake/internal/captcha"
	"wax-intake/internal/domain/submission"
	"wax-intake/internal/imaging"
	"wax-intake/internal/transport/httpdto"
	"wax-intake/internal/validation"
	wax_errors "wax-intake/pkg/errors"
	"wax-intake/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CaptchaVerifier is the anti-bot trust boundary.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (captcha.Result, error)
}

// Persister runs the storage+metadata commit.
type Persister interface {
	Persist(ctx context.Context, draft submission.Draft, att submission.Attachment, score float64) (submission.Submission, error)
}

// Notifier sends the reviewer email after a successful commit.
type Notifier interface {
	SendSubmissionNotice(draft submission.Draft, att submission.Attachment) error
}

// SubmissionHandler drives the pipeline in order: validate, verify,
// sniff, normalize, persist, notify. A failed stage terminates the
// request; later stages never run. The temp file is removed on every
// exit path by a single deferred cleanup.
type SubmissionHandler struct {
	verifier  CaptchaVerifier
	service   Persister
	mailer    Notifier
	uploadDir string
	localDev  bool
	prod      bool
	log       *logger.Logger

	// Codec stages, swappable in tests that have no libvips.
	sniff     func(path string) (string, error)
	normalize func(att submission.Attachment, mime string) (submission.Attachment, error)
}

func NewSubmissionHandler(verifier CaptchaVerifier, service Persister, mailer Notifier, uploadDir string, localDev, prod bool, log *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		verifier:  verifier,
		service:   service,
		mailer:    mailer,
		uploadDir: uploadDir,
		localDev:  localDev,
		prod:      prod,
		log:       log,
		sniff:     imaging.Sniff,
		normalize: imaging.Normalize,
	}
}

func (h *SubmissionHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// MaxBytesReader trips during the multipart parse, so an
		// oversized body also lands here.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.log.Warnf("upload over the %d byte cap", maxErr.Limit)
			c.JSON(http.StatusBadRequest, httpdto.NewMessageResponse("file too large"))
			return
		}
		c.JSON(http.StatusBadRequest, httpdto.NewMessageResponse("File is required"))
		return
	}

	var form validation.Form
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewMessageResponse("Invalid form data"))
		return
	}
	draft, fieldErrs := validation.Parse(form)
	if fieldErrs != nil {
		h.log.Warnf("invalid form data: %d field(s)", len(fieldErrs))
		c.JSON(http.StatusBadRequest, httpdto.NewValidationResponse("Invalid form data", fieldErrs))
		return
	}

	if h.prod && !h.verifier.Enabled() {
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("reCAPTCHA is not configured"))
		return
	}

	score := 0.0
	if !h.localDev {
		verification, err := h.verifier.Verify(ctx, draft.RecaptchaToken, c.ClientIP())
		if err != nil {
			h.log.Errorf("captcha verify error: %v", err)
			c.JSON(http.StatusBadGateway, httpdto.NewMessageResponse("reCAPTCHA verification failed"))
			return
		}
		if !verification.OK {
			h.log.Warnf("captcha rejected, score %.2f", verification.Score)
			c.JSON(http.StatusForbidden, httpdto.NewMessageResponse("reCAPTCHA failed"))
			return
		}
		score = verification.Score
	}

	att, err := h.saveTempFile(c, fileHeader)
	if err != nil {
		h.log.Errorf("temp file save failed: %v", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Invalid file upload"))
		return
	}
	// att.Path tracks the current temp file through normalization;
	// no exit path may leak it.
	defer func() {
		if att.Path != "" {
			if err := os.Remove(att.Path); err != nil && !os.IsNotExist(err) {
				h.log.Errorf("failed to delete temp file %s: %v", att.Path, err)
			}
		}
	}()

	detected, err := h.sniff(att.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewMessageResponse("Only image files are allowed"))
		return
	}

	att, err = h.normalize(att, detected)
	if err != nil {
		h.log.Errorf("image normalization failed: %v", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Image compression failed"))
		return
	}

	if _, err := h.service.Persist(ctx, draft, att, score); err != nil {
		h.log.Errorf("persistence failed: %v", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse(persistMessage(err)))
		return
	}

	if h.localDev {
		c.JSON(http.StatusOK, httpdto.NewMessageResponse("Upload successful (local mode)"))
		return
	}

	if h.mailer == nil {
		h.log.Errorf("mail relay not configured")
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Email service not configured"))
		return
	}
	if err := h.mailer.SendSubmissionNotice(draft, att); err != nil {
		// The commit stands: a submission that fails to notify is
		// submitted but under-notified, never rolled back.
		h.log.Errorf("notification failed: %v", err)
		c.JSON(http.StatusBadGateway, httpdto.NewMessageResponse("Email sending failed"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewMessageResponse("Upload successful"))
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]+$`)

// saveTempFile writes the upload under a generated name; nothing of
// the client-supplied path survives except a sanitized extension.
func (h *SubmissionHandler) saveTempFile(c *gin.Context, fh *multipart.FileHeader) (submission.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.New(), ext)
	path := filepath.Join(h.uploadDir, name)

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return submission.Attachment{}, err
	}
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return submission.Attachment{}, err
	}

	return submission.Attachment{
		Path:         path,
		FileName:     name,
		OriginalName: filepath.Base(fh.Filename),
		MimeType:     fh.Header.Get("Content-Type"),
		SizeBytes:    fh.Size,
	}, nil
}

func persistMessage(err error) string {
	switch {
	case errors.Is(err, wax_errors.ErrNotConfigured):
		return "Storage is not configured"
	case errors.Is(err, wax_errors.ErrStorageFailed):
		return "File storage failed"
	default:
		return "Failed to save form data"
	}
}
