package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"wax-intake/internal/domain/submission"
	"wax-intake/internal/repository"
	wax_errors "wax-intake/pkg/errors"
	"wax-intake/pkg/logger"

	"github.com/google/uuid"
)

// ObjectStore is the blob side of the commit. Put must refuse to
// overwrite an existing key; Delete is best-effort compensation.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AuditLog is the append-only fallback/audit persistence.
type AuditLog interface {
	Append(ctx context.Context, entry submission.LogEntry) error
}

// SubmissionService coordinates the multi-step commit: blob upload,
// then metadata record, with a compensating blob delete if the
// metadata write fails after the upload succeeded. In local mode both
// external steps are skipped and the append-log is the sole
// persistence.
type SubmissionService struct {
	store     ObjectStore
	repo      repository.SubmissionRepository
	forms     AuditLog
	localMode bool
	log       *logger.Logger
	now       func() time.Time
}

func NewSubmissionService(store ObjectStore, repo repository.SubmissionRepository, forms AuditLog, localMode bool, log *logger.Logger) *SubmissionService {
	return &SubmissionService{
		store:     store,
		repo:      repo,
		forms:     forms,
		localMode: localMode,
		log:       log,
		now:       time.Now,
	}
}

func (s *SubmissionService) appendLog(ctx context.Context, entry submission.LogEntry) error {
	if s.forms == nil {
		return nil
	}
	return s.forms.Append(ctx, entry)
}

// Persist runs the commit for a validated draft and its normalized
// attachment. The submission id is generated here, before any
// persistence step, and correlates the storage key, the metadata row
// and the log entry. The temp file is left in place; its lifecycle
// belongs to the request that created it.
func (s *SubmissionService) Persist(ctx context.Context, draft submission.Draft, att submission.Attachment, score float64) (submission.Submission, error) {
	id := uuid.New()
	createdAt := s.now()

	record := submission.Submission{
		ID:             id,
		FullName:       draft.FullName,
		Email:          draft.Email,
		Phone:          draft.Phone,
		Title:          draft.Title,
		Artist:         draft.Artist,
		Genre:          draft.Genre,
		Year:           draft.Year,
		Condition:      draft.Condition,
		Price:          draft.Price,
		RecaptchaScore: score,
		CreatedAt:      createdAt,
	}

	if s.localMode {
		// Degraded development path: the append-log is the only
		// durable remnant.
		if err := s.appendLog(ctx, submission.NewLogEntry(draft, att, createdAt)); err != nil {
			return submission.Submission{}, fmt.Errorf("%w: %v", wax_errors.ErrMetadataFailed, err)
		}
		return record, nil
	}

	if s.store == nil {
		return submission.Submission{}, fmt.Errorf("%w: storage", wax_errors.ErrNotConfigured)
	}

	body, err := os.ReadFile(att.Path)
	if err != nil {
		return submission.Submission{}, fmt.Errorf("%w: read temp file: %v", wax_errors.ErrStorageFailed, err)
	}

	key := fmt.Sprintf("submissions/%s/%s", id, att.FileName)
	if err := s.store.Put(ctx, key, body, att.MimeType); err != nil {
		return submission.Submission{}, fmt.Errorf("%w: %v", wax_errors.ErrStorageFailed, err)
	}

	record.FileName = sql.NullString{String: att.FileName, Valid: true}
	record.FileOriginalName = sql.NullString{String: att.OriginalName, Valid: true}
	record.FileBucket = sql.NullString{String: s.store.Bucket(), Valid: true}
	record.FileKey = sql.NullString{String: key, Valid: true}

	if err := s.repo.Create(ctx, &record); err != nil {
		// Compensate: the blob exists but no record references it.
		// A failed delete is an accepted durability gap, logged with
		// enough detail to reconcile by hand.
		if delErr := s.store.Delete(ctx, key); delErr != nil && s.log != nil {
			s.log.Errorf("compensating delete failed, orphaned blob %s/%s: %v", s.store.Bucket(), key, delErr)
		}
		return submission.Submission{}, fmt.Errorf("%w: %v", wax_errors.ErrMetadataFailed, err)
	}

	// Audit trail; the commit already happened, so failure only logs.
	if err := s.appendLog(ctx, submission.NewLogEntry(draft, att, createdAt)); err != nil && s.log != nil {
		s.log.Warnf("audit log append failed for %s: %v", id, err)
	}

	return record, nil
}
