package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// SMTPFilter is the SMTP proxy ingest surface. It sits in front of the
// real MTA, evaluates every message, stamps the verdict headers, and
// either rejects quarantined mail at DATA time or relays it onward.
type SMTPFilter struct {
	service          *core.PipelineService
	logger           *zap.Logger
	listenAddr       string
	server           *smtp.Server
	blockQuarantined bool
	verdictHeader    string
	riskHeader       string
	hitlHeader       string
	reasonHeader     string
	relayAddr        string
	relayPort        int
	relayEnabled     bool
}

// NewSMTPFilter creates a new SMTP proxy filter
func NewSMTPFilter(
	service *core.PipelineService,
	logger *zap.Logger,
	listenAddr string,
	blockQuarantined bool,
	verdictHeader string,
	riskHeader string,
	hitlHeader string,
	reasonHeader string,
	relayAddr string,
	relayPort int,
	relayEnabled bool,
) *SMTPFilter {
	return &SMTPFilter{
		service:          service,
		logger:           logger,
		listenAddr:       listenAddr,
		blockQuarantined: blockQuarantined,
		verdictHeader:    verdictHeader,
		riskHeader:       riskHeader,
		hitlHeader:       hitlHeader,
		reasonHeader:     reasonHeader,
		relayAddr:        relayAddr,
		relayPort:        relayPort,
		relayEnabled:     relayEnabled,
	}
}

// Start starts the SMTP filter service
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.listenAddr))

	// Start the server in a goroutine
	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP filter service
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail evaluates an email directly, bypassing the SMTP ingest
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.CompactEmail) (*core.Decision, error) {
	return f.service.Evaluate(ctx, core.EvaluationRequest{Email: email})
}

// relay forwards the stamped message to the downstream MTA
func (f *SMTPFilter) relay(sender string, recipients []string, emailData []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", f.relayAddr, f.relayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	clientIP := ""
	if addr := c.Conn().RemoteAddr(); addr != nil {
		if host, _, err := net.SplitHostPort(addr.String()); err == nil {
			clientIP = host
		} else {
			clientIP = addr.String()
		}
	}
	return &smtpSession{
		filter:     b.filter,
		clientIP:   clientIP,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	clientIP   string
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for our filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the email data
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	// Keep a copy of the raw data for later reconstruction
	rawDataCopy := make([]byte, len(rawData))
	copy(rawDataCopy, rawData)

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	email, err := BuildCompactEmail(msg, s.sender, s.clientIP, "smtp-ingest")
	if err != nil {
		s.filter.logger.Error("Failed to build compact email", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	decision, err := s.filter.service.Evaluate(ctx, core.EvaluationRequest{Email: email})
	if err != nil {
		// The pipeline fails open internally; an error here means the
		// request never ran. Let the message through unstamped rather
		// than bounce legitimate mail.
		s.filter.logger.Error("Evaluation failed, delivering unfiltered",
			zap.Error(err),
			zap.String("sender", email.From.Addr))
		decision = &core.Decision{
			Verdict: core.VerdictAllow,
			Reasons: []string{fmt.Sprintf("Evaluation error: %v", err)},
			HITL:    core.HITLInfo{Status: core.HITLSkipped},
		}
	}

	if decision.Verdict == core.VerdictQuarantine && s.filter.blockQuarantined {
		s.filter.logger.Info("Rejecting quarantined email",
			zap.String("from", email.From.Addr),
			zap.Int("risk", decision.Risk),
			zap.Strings("reasons", decision.Reasons))
		return fmt.Errorf("550 Message quarantined (risk: %d)", decision.Risk)
	}

	// Prepend the verdict headers, then copy the original message
	var modifiedEmail bytes.Buffer
	fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.verdictHeader, decision.Verdict)
	fmt.Fprintf(&modifiedEmail, "%s: %d\r\n", s.filter.riskHeader, decision.Risk)
	fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.hitlHeader, decision.HITL.Status)
	fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.reasonHeader, strings.Join(decision.Reasons, "; "))

	for key, values := range msg.Header {
		for _, value := range values {
			fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", key, value)
		}
	}
	fmt.Fprintf(&modifiedEmail, "\r\n")

	// Find where the original body starts in the raw data so MIME
	// parts and attachments survive untouched
	bodyStartIndex := bytes.Index(rawDataCopy, []byte("\r\n\r\n"))
	if bodyStartIndex == -1 {
		bodyStartIndex = bytes.Index(rawDataCopy, []byte("\n\n"))
		if bodyStartIndex == -1 {
			bodyBytes, err := io.ReadAll(msg.Body)
			if err != nil {
				s.filter.logger.Error("Failed to read message body", zap.Error(err))
				return err
			}
			modifiedEmail.Write(bodyBytes)
		} else {
			modifiedEmail.Write(rawDataCopy[bodyStartIndex+2:])
		}
	} else {
		modifiedEmail.Write(rawDataCopy[bodyStartIndex+4:])
	}

	if s.filter.relayEnabled {
		if err := s.filter.relay(s.sender, s.recipients, modifiedEmail.Bytes()); err != nil {
			s.filter.logger.Error("Failed to relay email",
				zap.Error(err),
				zap.String("sender", email.From.Addr))
			return err
		}
	} else {
		s.filter.logger.Warn("Relay forwarding disabled, this is likely a misconfiguration")
	}

	s.filter.logger.Info("Processed email",
		zap.String("from", email.From.Addr),
		zap.String("verdict", string(decision.Verdict)),
		zap.Int("risk", decision.Risk),
		zap.String("hitl", string(decision.HITL.Status)))

	return nil
}

// Logout handles SMTP logout (not needed for our filter)
func (s *smtpSession) Logout() error {
	return nil
}

// BuildCompactEmail normalizes a parsed message into the canonical
// record the pipeline consumes. The From header wins over the envelope
// sender, which is echoed separately for the aggregator.
func BuildCompactEmail(msg *mail.Message, envelopeFrom, clientIP, provenance string) (*core.CompactEmail, error) {
	textContent, hasICS, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	fromAddr := envelopeFrom
	if headerFrom := msg.Header.Get("From"); headerFrom != "" {
		if parsed, err := mail.ParseAddress(headerFrom); err == nil {
			fromAddr = parsed.Address
		}
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}

	dateISO := ""
	if t, err := msg.Header.Date(); err == nil {
		dateISO = t.UTC().Format(time.RFC3339)
	}

	return &core.CompactEmail{
		From: core.Address{Addr: strings.ToLower(fromAddr)},
		Envelope: core.Envelope{
			ClientIP: clientIP,
			MailFrom: strings.ToLower(envelopeFrom),
		},
		Subject:                subject,
		Body:                   textContent,
		MessageID:              strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		DateISO:                dateISO,
		ListUnsubscribePresent: msg.Header.Get("List-Unsubscribe") != "",
		HasCalendarICS:         hasICS,
		Provenance:             provenance,
	}, nil
}
