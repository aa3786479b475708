package mail

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
)

// ResetSubject is the subject line of password reset emails
const ResetSubject = "VDJServer Password Reset"

const resetText = `A password reset request has been submitted to vdjserver.org.

Reset your password for account "{{.Username}}" with reset code: {{.Token}}
or by visiting: {{.Link}}

The code expires at {{.Expires}}.

If you have not submitted a password reset request, then please disregard this email.
`

const resetHTML = `<html><body>
<p>A password reset request has been submitted to vdjserver.org.</p>
<p>Reset your password for account "<b>{{.Username}}</b>" with reset code: {{.Token}}, or by clicking on the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The code expires at {{.Expires}}.</p>
<p>If you have not submitted a password reset request, then please disregard this email.</p>
</body></html>`

var (
	resetTextTemplate = texttemplate.Must(texttemplate.New("reset-text").Parse(resetText))
	resetHTMLTemplate = htmltemplate.Must(htmltemplate.New("reset-html").Parse(resetHTML))
)

type resetData struct {
	Username string
	Token    string
	Link     string
	Expires  string
}

// ResetNotifier emails password reset tokens
type ResetNotifier struct {
	mailer  Mailer
	baseURL string
}

// NewResetNotifier creates a notifier linking to baseURL/{token}
func NewResetNotifier(mailer Mailer, baseURL string) (*ResetNotifier, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid password reset URL %q", baseURL)
	}
	return &ResetNotifier{mailer: mailer, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// SendPasswordReset mails the reset link for account
func (n *ResetNotifier) SendPasswordReset(ctx context.Context, account *accounts.Account, token string, expiresAt time.Time) error {
	msg, err := n.compose(account, token, expiresAt)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

func (n *ResetNotifier) compose(account *accounts.Account, token string, expiresAt time.Time) (Message, error) {
	data := resetData{
		Username: account.Username,
		Token:    token,
		Link:     n.baseURL + "/" + url.PathEscape(token),
		Expires:  accounts.FormatDate(expiresAt.UTC()) + " UTC",
	}

	var text, html bytes.Buffer
	if err := resetTextTemplate.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset email: %w", err)
	}
	if err := resetHTMLTemplate.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render reset email: %w", err)
	}

	return Message{
		To:      account.Email,
		Subject: ResetSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
