package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"certengine/internal/config"
)

// ErrNoEmail 表示记录中没有可用的邮箱地址，派发前置检查失败。
var ErrNoEmail = errors.New("no email address recorded")

// Mailer 通过 SMTP 发送证书通知邮件。
type Mailer struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

// NewMailer 构造邮件派发器。
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// SendCertificate 发送证书签发邮件，包含校验链接。
// 失败不重试，由调用方以提示形式呈现。
func (m *Mailer) SendCertificate(recipientEmail, recipientName, certificateLink, category string) error {
	if strings.TrimSpace(recipientEmail) == "" {
		return ErrNoEmail
	}

	if category == "" {
		category = "Participation"
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.User, m.cfg.FromName)
	msg.SetHeader("To", recipientEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Official Certificate: %s - %s", recipientName, category))
	msg.SetBody("text/html", certificateEmailHTML(recipientName, certificateLink, category))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send certificate email to %q: %w", recipientEmail, err)
	}
	return nil
}

// categoryBody 按类别选择正文措辞，未命中的类别使用通用致谢。
func categoryBody(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "keynote"):
		return "We express our sincere gratitude for your invaluable contribution as a <strong>Keynote Speaker</strong>. Your insights greatly enriched our summit and inspired our attendees."
	case strings.Contains(c, "presenter") || strings.Contains(c, "paper"):
		return "Thank you for sharing your research and expertise as a <strong>Presenter</strong>. Your presentation was a vital part of our success."
	case strings.Contains(c, "committee") || strings.Contains(c, "ocm") || strings.Contains(c, "organizing"):
		return "We deeply appreciate your dedication and hard work as a member of the <strong>Organizing Committee</strong>. This summit would not have been possible without your efforts."
	case strings.Contains(c, "advisory") || strings.Contains(c, "board"):
		return "Thank you for your strategic guidance and support as a member of our <strong>Advisory Board</strong>. Your leadership is greatly valued."
	default:
		return "Thank you for participating in our conference. We hope you found the sessions valuable and insightful."
	}
}

func certificateEmailHTML(recipientName, certificateLink, category string) string {
	return fmt.Sprintf(`
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="font-size: 24px;">Certificate Issued</h1>
  <h2 style="font-size: 18px;">Congratulations, %s!</h2>
  <p>%s</p>
  <p>Your official certificate for <strong>%s</strong> is now available for download.</p>
  <p style="margin: 30px 0; text-align: center;">
    <a href="%s" style="background-color: #4F8EF7; color: white; padding: 14px 28px; border-radius: 8px; text-decoration: none; font-weight: bold;">View My Certificate</a>
  </p>
  <p style="font-size: 13px; color: #6b7280;">This link also allows anyone to verify the authenticity of your certificate.</p>
  <p style="font-size: 12px; color: #9ca3af;">This is an automated message. Please do not reply to this email.</p>
</div>`,
		recipientName, categoryBody(category), category, certificateLink)
}
