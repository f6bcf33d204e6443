package email

import (
	"bytes"
	"html/template"
)

var (
	confirmTmpl = template.Must(template.New("confirm").Parse(
		`<p>Welcome!</p><p>Confirm your account by opening the link below. It expires in 48 hours.</p>` +
			`<p><a href="{{.Link}}">Confirm my account</a></p>`))
	recoverTmpl = template.Must(template.New("recover").Parse(
		`<p>Someone asked to reset the password for this account.</p>` +
			`<p><a href="{{.Link}}">Choose a new password</a></p>` +
			`<p>The link expires in one hour. If this wasn't you, ignore this email.</p>`))
	decisionTmpl = template.Must(template.New("decision").Parse(
		`<p>Hi {{.Name}},</p>` +
			`{{if .Approved}}<p>You're confirmed for <strong>{{.Activity}}</strong>. See you there!</p>` +
			`{{else}}<p>Sorry, we couldn't fit you in for <strong>{{.Activity}}</strong> this time.</p>{{end}}`))
)

// ConfirmationEmail builds the account confirmation message.
func ConfirmationEmail(to, link string) (SendRequest, error) {
	return render(to, "Confirm your account", confirmTmpl, map[string]string{"Link": link})
}

// RecoveryEmail builds the password recovery message.
func RecoveryEmail(to, link string) (SendRequest, error) {
	return render(to, "Reset your password", recoverTmpl, map[string]string{"Link": link})
}

// DecisionEmail tells a member whether their waitlisted signup was approved.
func DecisionEmail(to, name, activity string, approved bool) (SendRequest, error) {
	subject := "Signup update: " + activity
	return render(to, subject, decisionTmpl, struct {
		Name, Activity string
		Approved       bool
	}{name, activity, approved})
}

func render(to, subject string, t *template.Template, data any) (SendRequest, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return SendRequest{}, err
	}
	return SendRequest{To: []string{to}, Subject: subject, HTML: buf.String()}, nil
}
