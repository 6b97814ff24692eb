package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent, textContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, textContent)
	msg.AddAlternativeString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendReviewNotification(ctx context.Context, toEmail string, n ReviewNotification) error {
	subject := fmt.Sprintf(subjectReviewFlaggedFmt, JobLabel(n))
	content, err := renderEmailTemplate("review_flagged.html", newReviewEmailData(n))
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content, reviewText(n))
}

func reviewText(n ReviewNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %s needs review.\n\n", JobLabel(n))
	fmt.Fprintf(&b, "%d gates were skipped by exception (threshold %d).\n", n.ExceptionCount, n.Threshold)
	if len(n.Stages) > 0 {
		fmt.Fprintf(&b, "Skipped: %s\n", strings.Join(n.Stages, ", "))
	}
	if n.JobAddress != "" {
		fmt.Fprintf(&b, "Address: %s\n", n.JobAddress)
	}
	return b.String()
}

// JobLabel is the job title, or its id when the title is blank.
func JobLabel(n ReviewNotification) string {
	if strings.TrimSpace(n.JobTitle) != "" {
		return n.JobTitle
	}
	return n.JobID
}
