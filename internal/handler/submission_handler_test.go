package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"wax-intake/internal/captcha"
	"wax-intake/internal/domain/submission"
	"wax-intake/internal/middleware"
	"wax-intake/internal/transport/httpdto"
	wax_errors "wax-intake/pkg/errors"
	"wax-intake/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	enabled bool
	result  captcha.Result
	err     error
}

func (f *fakeVerifier) Enabled() bool { return f.enabled }

func (f *fakeVerifier) Verify(_ context.Context, _, _ string) (captcha.Result, error) {
	return f.result, f.err
}

type fakePersister struct {
	called bool
	draft  submission.Draft
	err    error
}

func (f *fakePersister) Persist(_ context.Context, draft submission.Draft, att submission.Attachment, _ float64) (submission.Submission, error) {
	f.called = true
	f.draft = draft
	if f.err != nil {
		return submission.Submission{}, f.err
	}
	return submission.Submission{}, nil
}

type fakeNotifier struct {
	called bool
	err    error
}

func (f *fakeNotifier) SendSubmissionNotice(_ submission.Draft, _ submission.Attachment) error {
	f.called = true
	return f.err
}

type fixture struct {
	handler   *SubmissionHandler
	verifier  *fakeVerifier
	persister *fakePersister
	notifier  *fakeNotifier
	uploadDir string
	router    *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		verifier:  &fakeVerifier{enabled: true, result: captcha.Result{OK: true, Score: 0.9}},
		persister: &fakePersister{},
		notifier:  &fakeNotifier{},
		uploadDir: t.TempDir(),
	}
	f.handler = NewSubmissionHandler(
		f.verifier, f.persister, f.notifier, f.uploadDir,
		false, false, logger.New(logger.DevelopmentMode),
	)
	// Codec stages stubbed; libvips is not part of the test rig.
	f.handler.sniff = func(string) (string, error) { return "image/jpeg", nil }
	f.handler.normalize = func(att submission.Attachment, _ string) (submission.Attachment, error) {
		att.MimeType = "image/jpeg"
		return att, nil
	}

	f.router = gin.New()
	f.router.POST("/upload", f.handler.Upload)
	return f
}

func validFields() map[string]string {
	return map[string]string{
		"fullName":       "Miles Fan",
		"email":          "miles.fan@example.com",
		"phone":          "+14155551234",
		"title":          "Kind of Blue",
		"artist":         "Miles Davis",
		"genre":          "Jazz",
		"year":           "1959",
		"condition":      "Near Mint (NM)",
		"price":          "45.00",
		"recaptchaToken": "tok-1234567890",
	}
}

func multipartBody(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withFile {
		part, err := w.CreateFormFile("file", "cover.jpg")
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader([]byte("\xff\xd8\xff\xe0 fake jpeg bytes")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (f *fixture) post(t *testing.T, fields map[string]string, withFile bool) (*httptest.ResponseRecorder, httpdto.MessageResponse) {
	t.Helper()
	body, contentType := multipartBody(t, fields, withFile)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp httpdto.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func requireNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "temp files leaked")
}

func TestUpload_HappyPath(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Upload successful", resp.Message)
	require.True(t, f.persister.called)
	require.True(t, f.notifier.called)
	require.Equal(t, "Kind of Blue", f.persister.draft.Title)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.post(t, validFields(), false)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "File is required", resp.Message)
	require.False(t, f.persister.called)
}

func TestUpload_OversizedBodyTripsDuringParse(t *testing.T) {
	// given: a body cap small enough that MaxBytesReader fires inside
	// the multipart parse. The body is wrapped so its length is
	// unknown, skipping the middleware's cheap Content-Length check.
	f := newFixture(t)
	limited := gin.New()
	limited.POST("/upload", middleware.BodyLimitMiddleware(64), f.handler.Upload)

	body, contentType := multipartBody(t, validFields(), true)
	req := httptest.NewRequest(http.MethodPost, "/upload", io.NopCloser(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	// when
	limited.ServeHTTP(rec, req)

	// then: too large, not mistaken for a missing file
	var resp httpdto.MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "file too large", resp.Message)
	require.False(t, f.persister.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_YearOutOfRange(t *testing.T) {
	f := newFixture(t)
	fields := validFields()
	fields["year"] = "1850"

	rec, resp := f.post(t, fields, true)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, resp.Errors, "year")
	require.False(t, f.persister.called)
	require.False(t, f.notifier.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_CaptchaRejected(t *testing.T) {
	f := newFixture(t)
	f.verifier.result = captcha.Result{OK: false, Score: 0.1}

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "reCAPTCHA failed", resp.Message)
	require.False(t, f.persister.called)
	require.False(t, f.notifier.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_CaptchaUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = wax_errors.ErrCaptchaUpstream

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "reCAPTCHA verification failed", resp.Message)
	require.False(t, f.persister.called)
}

func TestUpload_SniffRejects(t *testing.T) {
	f := newFixture(t)
	f.handler.sniff = func(string) (string, error) {
		return "", wax_errors.ErrUnsupportedFileType
	}

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Only image files are allowed", resp.Message)
	require.False(t, f.persister.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_NormalizeFailure(t *testing.T) {
	f := newFixture(t)
	f.handler.normalize = func(att submission.Attachment, _ string) (submission.Attachment, error) {
		return att, errors.New("codec exploded")
	}

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Image compression failed", resp.Message)
	require.False(t, f.persister.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_PersistFailures(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"storage", wax_errors.ErrStorageFailed, "File storage failed"},
		{"metadata", wax_errors.ErrMetadataFailed, "Failed to save form data"},
		{"unconfigured", wax_errors.ErrNotConfigured, "Storage is not configured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.persister.err = tc.err

			rec, resp := f.post(t, validFields(), true)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			require.Equal(t, tc.message, resp.Message)
			require.False(t, f.notifier.called)
			requireNoTempFiles(t, f.uploadDir)
		})
	}
}

func TestUpload_MailFailureKeepsCommit(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = wax_errors.ErrMailFailed

	rec, resp := f.post(t, validFields(), true)

	// The submission stands; it is submitted but under-notified.
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "Email sending failed", resp.Message)
	require.True(t, f.persister.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_LocalDevMode(t *testing.T) {
	f := newFixture(t)
	f.handler.localDev = true
	f.handler.mailer = nil
	f.verifier.enabled = false

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Upload successful (local mode)", resp.Message)
	require.True(t, f.persister.called)
	require.False(t, f.notifier.called)
	requireNoTempFiles(t, f.uploadDir)
}

func TestUpload_ProductionRequiresCaptchaConfig(t *testing.T) {
	f := newFixture(t)
	f.handler.prod = true
	f.verifier.enabled = false

	rec, resp := f.post(t, validFields(), true)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "reCAPTCHA is not configured", resp.Message)
	require.False(t, f.persister.called)
}
