package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// SMTPMailer delivers notices over SMTP. Port 465 with UseTLS dials implicit
// TLS; other ports upgrade with STARTTLS when the server offers it.
type SMTPMailer struct {
	host   string
	port   int
	from   string
	user   string
	pass   string
	useTLS bool
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{
		host:   strings.TrimSpace(host),
		port:   port,
		from:   strings.TrimSpace(from),
		user:   strings.TrimSpace(user),
		pass:   strings.TrimSpace(pass),
		useTLS: useTLS,
	}
}

func (s *SMTPMailer) SendArrivalNotice(ctx context.Context, to string, notice ArrivalNotice) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("empty recipient email")
	}
	msg, err := s.buildMessage(to, notice.subject(), notice.text(), notice.html())
	if err != nil {
		return err
	}
	return s.deliver(ctx, to, msg)
}

// buildMessage renders a multipart/alternative message with text and html parts.
func (s *SMTPMailer) buildMessage(to, subject, text, html string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func (s *SMTPMailer) deliver(ctx context.Context, to string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	implicitTLS := s.useTLS && s.port == 465

	var conn net.Conn
	var err error
	if implicitTLS {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.host}}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if !implicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		} else if s.useTLS {
			return errors.New("smtp server does not offer STARTTLS")
		}
	}

	// Local catchers such as Mailpit take mail without auth.
	if s.user != "" {
		if err := c.Auth(smtp.PlainAuth("", s.user, s.pass, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
