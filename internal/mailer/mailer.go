package mailer

import (
	"fmt"
	"html"
	"strings"

	"wax-intake/internal/domain/submission"
	wax_errors "wax-intake/pkg/errors"

	"gopkg.in/gomail.v2"
)

// Mailer sends the single reviewer notification. It runs after the
// commit; its failure never rolls storage or metadata back.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   []string
}

func New(cfg SMTPConfig) *Mailer {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" || len(cfg.To) == 0 {
		return nil
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   cfg.From,
		to:     cfg.To,
	}
}

// SendSubmissionNotice composes and sends the reviewer email with the
// normalized image attached. Single attempt, no retry.
func (m *Mailer) SendSubmissionNotice(draft submission.Draft, att submission.Attachment) error {
	if m == nil {
		return fmt.Errorf("%w: mail relay", wax_errors.ErrNotConfigured)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", "New submission on We Need Wax")
	msg.SetBody("text/html", RenderBody(draft))
	if att.Path != "" {
		msg.Attach(att.Path,
			gomail.Rename(att.OriginalName),
			gomail.SetHeader(map[string][]string{"Content-Type": {att.MimeType}}),
		)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: %v", wax_errors.ErrMailFailed, err)
	}
	return nil
}

// RenderBody builds the two-table HTML summary. Every field is
// escaped; form values must not be able to inject markup into the
// reviewer's mailbox.
func RenderBody(draft submission.Draft) string {
	var b strings.Builder
	b.WriteString("<h2>New Submission</h2>")
	b.WriteString("<h3>What they are offering</h3>")
	writeTable(&b, [][2]string{
		{"Artist", draft.Artist},
		{"Title", draft.Title},
		{"Year", fmt.Sprintf("%d", draft.Year)},
		{"Genre", draft.Genre},
		{"Condition", draft.Condition},
		{"Price", draft.Price.StringFixed(2)},
	})
	b.WriteString("<h3>How to reach them</h3>")
	writeTable(&b, [][2]string{
		{"Full name", draft.FullName},
		{"Email", draft.Email},
		{"Phone", draft.Phone},
	})
	return b.String()
}

const cellStyle = `border: 1px solid #ddd; padding: 8px;`

func writeTable(b *strings.Builder, rows [][2]string) {
	b.WriteString(`<table style="border-collapse: collapse; width: 100%;">`)
	for _, row := range rows {
		fmt.Fprintf(b, `<tr><td style=%q>%s</td><td style=%q>%s</td></tr>`,
			cellStyle, html.EscapeString(row[0]), cellStyle, html.EscapeString(row[1]))
	}
	b.WriteString("</table>")
}
