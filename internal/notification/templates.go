package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	confirmationSubject = "Exam - Account Confirmation"
	platformName        = "Exam Platform"
)

var confirmationHTML = template.Must(template.New("confirmation").Parse(`
<div style="font-family:Arial; font-size:14px; color:#333">
    <h2>Welcome to <span style="color:#0052cc">{{.Platform}}</span></h2>
    <p>Thank you for registering on our Exam system.</p>
    <p>Please click the button below to confirm your account:</p>
    <a href="{{.Link}}"
       style="display:inline-block; padding:10px 20px; background-color:#0052cc; color:white; text-decoration:none; border-radius:5px; margin-top:10px;">
       Confirm My Account
    </a>
    <p>If the button doesn't work, copy and paste this link into your browser:</p>
    <p>{{.Link}}</p>
    <br/>
    <p>Best Regards,<br/>{{.Platform}} Team</p>
</div>
`))

// ConfirmationMessage renders the account confirmation email for toEmail.
func ConfirmationMessage(toEmail, link string) (Message, error) {
	var html bytes.Buffer
	err := confirmationHTML.Execute(&html, struct {
		Platform string
		Link     string
	}{Platform: platformName, Link: link})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render confirmation email: %w", err)
	}

	return Message{
		ToEmail:   toEmail,
		Subject:   confirmationSubject,
		PlainText: fmt.Sprintf("Welcome to %s! Please confirm your email using the following link: %s", platformName, link),
		HTML:      html.String(),
	}, nil
}
