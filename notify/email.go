package notify

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// EmailNotifier mails submission results to the configured recipients.
// Only submission-result notices are mailed, scan-level chatter never
// leaves the process.
type EmailNotifier struct {
	Host     string
	Port     int
	Sender   string
	Password string
	To       []string
}

func NewEmailNotifier(host string, port int, sender, password string, to []string) *EmailNotifier {
	return &EmailNotifier{Host: host, Port: port, Sender: sender, Password: password, To: to}
}

func (e *EmailNotifier) Notify(n Notice) {
	if !e.shouldMail(n) {
		return
	}

	body := fmt.Sprintf(`
		<html>
			<body>
				<h3>%s</h3>
				<p>%s</p>
				<p>This is an auto-generated email. Please do not reply to this email or its recipients.</p>
			</body>
		</html>
	`, n.Title, n.Description)

	msg := gomail.NewMessage()
	msg.SetHeader("From", e.Sender)
	msg.SetHeader("To", e.To...)
	msg.SetHeader("Subject", "📦 "+n.Title)
	msg.SetBody("text/html", body)

	// Fire and forget, a mail failure must never reach the scan pipeline.
	go func() {
		dialer := gomail.NewDialer(e.Host, e.Port, e.Sender, e.Password)
		if err := dialer.DialAndSend(msg); err != nil {
			log.Println("Failed to send notification email:", err)
		}
	}()
}

// shouldMail limits the mailbox to final submission results. A rejected
// scan on the floor is a toast, not an email.
func (e *EmailNotifier) shouldMail(n Notice) bool {
	if e.Host == "" || len(e.To) == 0 {
		return false
	}
	if n.Kind != KindSubmission {
		return false
	}
	return n.Severity == SeveritySuccess || n.Severity == SeverityError
}
