package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/taskager/taskager/internal/logging"
)

// Service sends transactional email over SMTP. Construct it only when real
// credentials are configured; callers treat its absence as the auto-verify
// fallback.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	clientURL    string
	logger       *logging.Logger

	verificationTmpl *template.Template
	resetTmpl        *template.Template
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, clientURL string, logger *logging.Logger) *Service {
	return &Service{
		smtpHost:         smtpHost,
		smtpPort:         smtpPort,
		smtpUser:         smtpUser,
		smtpPassword:     smtpPassword,
		fromEmail:        smtpUser,
		clientURL:        clientURL,
		logger:           logger,
		verificationTmpl: template.Must(template.New("verification").Parse(verificationEmailTmpl)),
		resetTmpl:        template.Must(template.New("passwordReset").Parse(resetEmailTmpl)),
	}
}

// SendVerificationEmail sends an email verification link to the user.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, name, token string) error {
	link := fmt.Sprintf("%s/verify-email/%s", s.clientURL, token)

	body, err := s.render(s.verificationTmpl, name, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Verify Your Taskager Account", body); err != nil {
		s.logger.Error("failed to send verification email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail sends a password reset link to the user.
// This method is designed to be called in a goroutine.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, token)

	body, err := s.render(s.resetTmpl, name, link)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Reset Your Taskager Password", body); err != nil {
		s.logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) render(tmpl *template.Template, name, link string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Name string
		Link string
	}{Name: name, Link: link}

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: \"Taskager\" <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

const verificationEmailTmpl = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #2563eb; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Welcome to Taskager!</h1>
    </div>
    <div class="content">
        <p>Hi {{.Name}},</p>
        <p>Thank you for registering with Taskager! To complete your registration, please verify your email address.</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">Verify Email Address</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #2563eb;">{{.Link}}</p>

        <p><strong>This link will expire in 24 hours.</strong></p>
        <p>If you didn't create an account with Taskager, please ignore this email.</p>
    </div>
    <div class="footer">
        <p>&copy; Taskager. Stay organized, stay ahead.</p>
    </div>
</body>
</html>
`

const resetEmailTmpl = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #dc2626; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Password Reset Request</h1>
    </div>
    <div class="content">
        <p>Hi {{.Name}},</p>
        <p>We received a request to reset your password for your Taskager account.</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">Reset Password</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #2563eb;">{{.Link}}</p>

        <p><strong>This link will expire in 10 minutes.</strong></p>
        <p>If you didn't request a password reset, please ignore this email. Your password will remain unchanged.</p>
    </div>
    <div class="footer">
        <p>&copy; Taskager. All rights reserved.</p>
    </div>
</body>
</html>
`
