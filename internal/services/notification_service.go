// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
)

type OrderEvent string

const (
	OrderEventPlaced        OrderEvent = "order_placed"
	OrderEventStatusChanged OrderEvent = "order_status_changed"
	OrderEventCancelled     OrderEvent = "order_cancelled"
)

// OrderNotifier tells a customer about their order. Delivery is best
// effort: callers log failures and carry on.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, event OrderEvent, order *models.Order) error
}

type NotificationService struct {
	email    config.EmailConfig
	frontend config.FrontendConfig
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{
		email:    cfg.Email,
		frontend: cfg.Frontend,
		send:     smtp.SendMail,
	}
}

func (s *NotificationService) SendWelcomeEmail(user *models.User) error {
	data := map[string]interface{}{
		"Name":    user.DisplayName,
		"ShopURL": s.frontend.BaseURL,
	}
	return s.sendTemplate(user.Email, "welcome", data)
}

func (s *NotificationService) NotifyOrder(ctx context.Context, event OrderEvent, order *models.Order) error {
	if order.ContactEmail == "" {
		return nil
	}

	data := map[string]interface{}{
		"Name":         order.ShippingInfo.FullName,
		"OrderNumber":  order.OrderNumber,
		"Status":       string(order.Status),
		"Items":        order.Items,
		"Total":        order.Total.Format("$"),
		"CancelReason": order.CancelReason,
		"OrderURL":     fmt.Sprintf("%s/orders/%s", s.frontend.BaseURL, order.ID),
	}
	return s.sendTemplate(order.ContactEmail, string(event), data)
}

func (s *NotificationService) sendTemplate(to, templateType string, data map[string]interface{}) error {
	tmpl, ok := emailTemplates[templateType]
	if !ok {
		return fmt.Errorf("unknown email template %q", templateType)
	}

	subject, err := s.renderTemplate(tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.sendEmail(to, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("SMTP not configured, email skipped")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.email.SMTPUsername, s.email.SMTPPassword, s.email.SMTPHost)

	from := s.email.FromEmail
	if s.email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.email.FromName, s.email.FromEmail)
	}

	// Compose message
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.email.SMTPHost, s.email.SMTPPort)
	if err := s.send(addr, auth, s.email.FromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

var emailTemplates = map[string]EmailTemplate{
	"welcome": {
		Subject: "Welcome to Storefront",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Name}}!</h2>
	<p>Your account is ready. Start browsing at <a href="{{.ShopURL}}">{{.ShopURL}}</a>.</p>
	<p>Best regards,<br>Storefront Team</p>
</body>
</html>`,
	},
	string(OrderEventPlaced): {
		Subject: "Order {{.OrderNumber}} confirmed",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order, {{.Name}}!</h2>
	<p>We received order <strong>{{.OrderNumber}}</strong>.</p>
	<ul>
	{{range .Items}}<li>{{.Quantity}} x {{.Name}}</li>
	{{end}}
	</ul>
	<p>Total: {{.Total}}</p>
	<a href="{{.OrderURL}}">View your order</a>
	<p>Best regards,<br>Storefront Team</p>
</body>
</html>`,
	},
	string(OrderEventStatusChanged): {
		Subject: "Order {{.OrderNumber}} is now {{.Status}}",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
	<a href="{{.OrderURL}}">Track your order</a>
	<p>Best regards,<br>Storefront Team</p>
</body>
</html>`,
	},
	string(OrderEventCancelled): {
		Subject: "Order {{.OrderNumber}} cancelled",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Name}},</h2>
	<p>Your order <strong>{{.OrderNumber}}</strong> has been cancelled.</p>
	{{if .CancelReason}}<p>Reason: {{.CancelReason}}</p>{{end}}
	<p>If you paid by card, the refund of {{.Total}} is on its way.</p>
	<p>Best regards,<br>Storefront Team</p>
</body>
</html>`,
	},
}
