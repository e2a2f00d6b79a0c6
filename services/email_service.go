package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// EmailService handles sending emails via SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	appURL   string
}

// NewEmailService creates a new email service instance
func NewEmailService() *EmailService {
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	return &EmailService{
		host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		port:     port,
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getEnvOrDefault("SMTP_FROM", "noreply@pathlearn.app"),
		appURL:   getEnvOrDefault("APP_URL", "http://localhost:3000"),
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// SendPasswordResetEmail sends a password reset email to the user
func (e *EmailService) SendPasswordResetEmail(toEmail, resetToken, userName string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Reset token for %s: %s", toEmail, resetToken)
		return fmt.Errorf("SMTP not configured")
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, resetToken)
	subject := "Reset Your Password - PathLearn"
	body := e.buildEmailBody(userName,
		"Reset your password",
		"We received a request to reset your password. Click the button below to choose a new one. The link expires in one hour.",
		"Reset Password", resetLink)

	return e.sendEmail(toEmail, subject, body)
}

// SendAccountApprovedEmail notifies a user that an admin approved their account
func (e *EmailService) SendAccountApprovedEmail(toEmail, userName string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Approval notice for %s skipped", toEmail)
		return fmt.Errorf("SMTP not configured")
	}

	subject := "Your Account Is Approved - PathLearn"
	body := e.buildEmailBody(userName,
		"Welcome aboard",
		"Your account has been approved. You can now log in and start your first learning path.",
		"Go to PathLearn", e.appURL)

	return e.sendEmail(toEmail, subject, body)
}

// SendAccountRejectedEmail notifies a user that their registration was declined
func (e *EmailService) SendAccountRejectedEmail(toEmail, userName string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Rejection notice for %s skipped", toEmail)
		return fmt.Errorf("SMTP not configured")
	}

	subject := "About Your Registration - PathLearn"
	body := e.buildEmailBody(userName,
		"Registration update",
		"Unfortunately your registration request was not approved. If you believe this is a mistake, reply to this email.",
		"", "")

	return e.sendEmail(toEmail, subject, body)
}

// buildEmailBody creates a simple HTML email body
func (e *EmailService) buildEmailBody(userName, heading, text, buttonLabel, buttonLink string) string {
	if userName == "" {
		userName = "User"
	}

	button := ""
	if buttonLabel != "" && buttonLink != "" {
		button = fmt.Sprintf(`<p><a class="button" href="%s">%s</a></p>`, buttonLink, buttonLabel)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .container { background-color: #ffffff; border-radius: 8px; padding: 40px; border: 1px solid #eee; }
        h2 { color: #1a4d80; margin-top: 0; }
        .button { display: inline-block; background-color: #1a4d80; color: #ffffff !important; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h2>%s</h2>
        <p>Hi %s,</p>
        <p>%s</p>
        %s
        <div class="footer">PathLearn &middot; this is an automated message</div>
    </div>
</body>
</html>`, heading, userName, text, button)
}

func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	// Build the email message with proper headers
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("PathLearn <%s>", e.from)
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	tlsConfig := &tls.Config{
		ServerName: e.host,
	}

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return conn.Quit()
}
