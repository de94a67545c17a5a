package email

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// Service handles email notifications
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{config: cfg}
}

// statusDescriptions render workflow statuses for notification copy
var statusDescriptions = map[models.AppraisalStatus]string{
	models.StatusTargetsSet:           "targets have been set and signed off",
	models.StatusObservationSubmitted: "the observations have been submitted",
	models.StatusEvaluationSubmitted:  "the evaluation has been submitted",
	models.StatusTargetsSubmitted:     "the target review has been submitted",
	models.StatusCompleted:            "the appraisal has been completed",
}

// SendTransitionNotification informs the appraisee that their appraisal
// advanced a stage
func (s *Service) SendTransitionNotification(to, appraiseeName, appraiserName, term, year string, status models.AppraisalStatus) error {
	description, ok := statusDescriptions[status]
	if !ok {
		description = fmt.Sprintf("the appraisal moved to %s", status)
	}

	subject := fmt.Sprintf("Appraisal update for %s %s", term, year)

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Appraisal Update</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">Appraisal Update</h2>
        <p>Dear %s,</p>
        <p>Your appraisal for <strong>%s %s</strong>, conducted by %s, has a new update: %s.</p>
        <p>You can review the current state of your appraisal here:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Open Appraisal</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, appraiseeName, term, year, appraiserName, description, s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// SendDraftReminder nudges an appraiser about drafts that have gone stale
func (s *Service) SendDraftReminder(to, appraiserName string, drafts []models.AppraisalWithNames) error {
	subject := "Reminder: appraisal drafts awaiting your attention"

	var list bytes.Buffer
	for _, d := range drafts {
		list.WriteString(fmt.Sprintf("<li>%s (%s %s), untouched since %s</li>",
			d.AppraiseeName, d.Term, d.Year, d.UpdatedAt.Format("02 Jan 2006")))
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Draft Reminder</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">Appraisal Drafts Awaiting Action</h2>
        <p>Dear %s,</p>
        <p>The following appraisal drafts have not been updated recently:</p>
        <ul>%s</ul>
        <p>Please continue them at your earliest convenience:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Open Appraisals</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, appraiserName, list.String(), s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// SendDeletionRequestNotification informs the director about a pending
// deletion request
func (s *Service) SendDeletionRequestNotification(to, directorName, appraiserName, appraiseeName, reason string) error {
	subject := "Appraisal deletion request awaiting review"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Deletion Request</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #e74c3c;">Appraisal Deletion Request</h2>
        <p>Dear %s,</p>
        <p><strong>%s</strong> has requested the deletion of the appraisal of <strong>%s</strong>.</p>
        <div style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0;"><strong>Reason:</strong> %s</p>
        </div>
        <p>Please approve or reject the request:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #e74c3c; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Review Request</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, directorName, appraiserName, appraiseeName, reason, s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// SendAssignmentNotification informs an appraiser of a new appraisee
func (s *Service) SendAssignmentNotification(to, appraiserName, appraiseeName, roleKey string) error {
	subject := "New appraisee assigned to you"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Assignment</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">New Appraisee Assigned</h2>
        <p>Dear %s,</p>
        <p>You have been assigned as the appraiser of <strong>%s</strong> (%s).</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">View Assignments</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, appraiserName, appraiseeName, roleKey, s.config.AppBaseURL)

	return s.sendEmail(to, subject, body)
}

// SendSealAlert warns a director that sealed scoresheet verification found
// problems
func (s *Service) SendSealAlert(to, directorName string, problems map[string][]string) error {
	subject := "ALERT: sealed scoresheet verification failed"

	var list bytes.Buffer
	for term, errs := range problems {
		list.WriteString(fmt.Sprintf("<li><strong>%s</strong><ul>", term))
		for _, e := range errs {
			list.WriteString(fmt.Sprintf("<li>%s</li>", e))
		}
		list.WriteString("</ul></li>")
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Seal Verification Alert</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #e74c3c;">Sealed Scoresheet Verification Failed</h2>
        <p>Dear %s,</p>
        <p>The nightly integrity check of sealed scoresheets reported problems. This may indicate tampering with completed appraisal records and should be investigated immediately.</p>
        <div style="background-color: #f8d7da; border-left: 4px solid #e74c3c; padding: 15px; margin: 20px 0;">
            <ul>%s</ul>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, directorName, list.String())

	return s.sendEmail(to, subject, body)
}

// sendEmail sends an email using SMTP. When email is disabled by config the
// message is dropped with a debug log so development setups work without a
// mail server.
func (s *Service) sendEmail(to, subject, body string) error {
	if !s.config.Enabled {
		slog.Debug("Email disabled, dropping message", "to", to, "subject", subject)
		return nil
	}

	headers := map[string]string{
		"From":         s.config.SMTPFrom,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	var message bytes.Buffer
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		slog.Error("Failed to connect to SMTP server", "address", addr, "error", err)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil {
			slog.Error("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		slog.Error("Failed to create SMTP client", "error", err)
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		if err := client.Close(); err != nil {
			slog.Error("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Development relays like Mailpit accept mail without authentication
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		slog.Error("Failed to set sender", "from", s.config.SMTPFrom, "error", err)
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		slog.Error("Failed to set recipient", "to", to, "error", err)
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		slog.Error("Failed to initiate data transfer", "error", err)
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	defer func(wc io.WriteCloser) {
		if err := wc.Close(); err != nil {
			slog.Error("Failed to close write closer", "error", err)
		}
	}(wc)

	if _, err := wc.Write(message.Bytes()); err != nil {
		slog.Error("Failed to write message", "error", err)
		return fmt.Errorf("failed to write message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to, "subject", subject)

	return nil
}
