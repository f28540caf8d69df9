package utils

import (
	"fmt"
	"net/smtp"
	"os"

	"task-app/backend/task-service/logging"
)

// SendEmail šalje email na zadatu adresu sa naslovom i sadržajem koristeći net/smtp biblioteku
func SendEmail(to, subject, body string) error {
	from := os.Getenv("EMAIL_FROM")
	password := os.Getenv("EMAIL_PASSWORD")

	// SMTP server konfiguracija
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	if from == "" || password == "" {
		logging.Logger.Errorf("Event ID: SEND_EMAIL_MISSING_ENV, Description: EMAIL_FROM or EMAIL_PASSWORD environment variable is not set.")
		return fmt.Errorf("EMAIL_FROM or EMAIL_PASSWORD is not set")
	}

	// Priprema sadržaja poruke
	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{to}, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	logging.Logger.Infof("Event ID: SEND_EMAIL_SUCCESS, Description: Email successfully sent to '%s' with subject: '%s'", to, subject)
	return nil
}

// SendVerificationEmail šalje link za verifikaciju naloga novom korisniku,
// sa kodom kao rezervnom opcijom ako link ne radi.
func SendVerificationEmail(to, token, code string) error {
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	verifyLink := fmt.Sprintf("%s/api/auth/verify-email?token=%s", baseURL, token)

	subject := "Verify your email"
	body := fmt.Sprintf(
		"<h2>Welcome to Task App!</h2>"+
			"<p>Click the link below to verify your email address:</p>"+
			"<p><a href=\"%s\">Verify Email</a></p>"+
			"<p>Or enter this code manually: <strong>%s</strong></p>"+
			"<p>The link and code expire in <strong>20 minutes</strong>.</p>"+
			"<p>If you did not create this account, please ignore this email.</p>",
		verifyLink, code)

	return SendEmail(to, subject, body)
}
