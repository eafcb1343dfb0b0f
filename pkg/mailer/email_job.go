package mailer

// TemplatePasswordReset names the embedded reset-email template.
const TemplatePasswordReset = "reset_password"

// SubjectFor maps a template name to its email subject line.
func SubjectFor(template string) string {
	switch template {
	case TemplatePasswordReset:
		return "Reset your password"
	default:
		return "Notification"
	}
}

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template+Data or a raw Subject with Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
