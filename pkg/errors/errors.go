package wax_errors

import "errors"

// Failure classes of the submission pipeline. Stages wrap these with
// fmt.Errorf("%w: ...") and handlers map them to HTTP statuses with
// errors.Is.
var (
	ErrUnsupportedFileType = errors.New("only image files are allowed")
	ErrCaptchaUpstream     = errors.New("captcha verification unavailable")
	ErrAlreadyExists       = errors.New("already exists")
	ErrStorageFailed       = errors.New("file storage failed")
	ErrMetadataFailed      = errors.New("failed to save form data")
	ErrMailFailed          = errors.New("email sending failed")
	ErrNotConfigured       = errors.New("service not configured")
	ErrNotFound            = errors.New("not found")
)
