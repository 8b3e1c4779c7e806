package submission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Submission represents one row of the submissions table. FileBucket
// and FileKey stay NULL until the blob upload has succeeded.
type Submission struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FullName         string          `gorm:"not null" json:"fullName"`
	Email            string          `gorm:"not null" json:"email"`
	Phone            string          `gorm:"not null" json:"phone"`
	Title            string          `gorm:"not null" json:"title"`
	Artist           string          `gorm:"not null" json:"artist"`
	Genre            string          `gorm:"not null" json:"genre"`
	Year             int             `gorm:"not null" json:"year"`
	Condition        string          `gorm:"not null" json:"condition"`
	Price            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	FileName         sql.NullString  `json:"fileName"`
	FileOriginalName sql.NullString  `json:"fileOriginalName"`
	FileBucket       sql.NullString  `json:"fileBucket"`
	FileKey          sql.NullString  `json:"fileKey"`
	RecaptchaScore   float64         `json:"recaptchaScore"`
	CreatedAt        time.Time       `gorm:"default:now()" json:"createdAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

// Draft is the validated, normalized form output. It carries no
// attachment state; the attachment travels separately through the
// sniffing and normalization stages.
type Draft struct {
	FullName       string
	Email          string
	Phone          string
	Title          string
	Artist         string
	Genre          string
	Year           int
	Condition      string
	Price          decimal.Decimal
	RecaptchaToken string
}

// Attachment tracks the uploaded file on local disk as it moves from
// raw client bytes to the normalized canonical encoding. Path always
// points at the current temp file; every pipeline exit deletes it.
type Attachment struct {
	Path         string
	FileName     string
	OriginalName string
	MimeType     string
	SizeBytes    int64
}

// LogEntry is the append-log projection of a submission.
type LogEntry struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Genre      string `json:"genre"`
	Year       int    `json:"year"`
	Condition  string `json:"condition"`
	Price      string `json:"price"`
	UploadedAt string `json:"uploadedAt"`
	File       string `json:"file"`
}

// NewLogEntry projects a draft plus its normalized attachment into
// the append-log record shape.
func NewLogEntry(d Draft, att Attachment, at time.Time) LogEntry {
	return LogEntry{
		Title:      d.Title,
		Artist:     d.Artist,
		Genre:      d.Genre,
		Year:       d.Year,
		Condition:  d.Condition,
		Price:      d.Price.StringFixed(2),
		UploadedAt: at.UTC().Format(time.RFC3339),
		File:       att.FileName,
	}
}
