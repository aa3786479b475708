package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	ReplyTo   string
	TLSPolicy string // "mandatory", "opportunistic" or "none"
	Timeout   time.Duration
}

// SMTPMailer delivers through an SMTP relay
type SMTPMailer struct {
	config SMTPConfig
	client *gomail.Client
	send   func(ctx context.Context, msg *gomail.Msg) error
}

// NewSMTPMailer creates a mailer for the configured relay. No connection is
// made until the first Send.
func NewSMTPMailer(config SMTPConfig) (*SMTPMailer, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}

	policy, err := parseTLSPolicy(config.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []gomail.Option{gomail.WithTLSPortPolicy(policy)}
	if config.Port > 0 {
		opts = append(opts, gomail.WithPort(config.Port))
	}
	if config.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(config.Timeout))
	}
	if config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(config.Username),
			gomail.WithPassword(config.Password),
		)
	}

	client, err := gomail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	m := &SMTPMailer{config: config, client: client}
	m.send = func(ctx context.Context, msg *gomail.Msg) error {
		return m.client.DialAndSendWithContext(ctx, msg)
	}
	return m, nil
}

// Send builds and delivers msg
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	built, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.send(ctx, built); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	if msg.To == "" {
		return nil, ErrNoRecipient
	}

	built := gomail.NewMsg()
	if err := built.From(m.config.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := built.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if m.config.ReplyTo != "" {
		if err := built.ReplyTo(m.config.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	built.Subject(msg.Subject)

	built.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		built.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return built, nil
}

func parseTLSPolicy(policy string) (gomail.TLSPolicy, error) {
	switch strings.ToLower(policy) {
	case "", "mandatory":
		return gomail.TLSMandatory, nil
	case "opportunistic":
		return gomail.TLSOpportunistic, nil
	case "none":
		return gomail.NoTLS, nil
	default:
		return gomail.TLSMandatory, fmt.Errorf("unknown smtp TLS policy %q", policy)
	}
}
