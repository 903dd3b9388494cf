package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Subjects of the transactional emails
const (
	SubjectOnboarding          = "¡Gracias por unirte a nosotros! Empecemos a transformar tu negocio gastronómico 🚀"
	SubjectPaymentConfirmation = "¡Pago recibido con éxito! 🎉"
	SubjectPolicy              = "Políticas de servicio de Bakano"
	SubjectManagerInvite       = "Te agregaron como encargado de %s"
	SubjectUploadNotification  = "Nuevos documentos de consultoría: %s"
	SubjectUploadReminder      = "Recordatorio: sube los documentos de %s"
	SubjectDataDeletion        = "Tus datos fueron eliminados"
	SubjectBusinessDeleted     = "El negocio %s fue eliminado"
)

// AdminBaseURL is the back-office dashboard host used in internal notifications
const AdminBaseURL = "https://admin.bakano.ec"

// Config holds mailer configuration
type Config struct {
	From               string
	InternalRecipients []string
	PolicyURL          string
	SupportEmail       string
	FrontendHost       string
}

// Mailer renders and sends every transactional email
type Mailer struct {
	transport Transport
	renderer  *Renderer
	cfg       Config
	logger    *logrus.Logger
}

// NewMailer creates a mailer over the given transport
func NewMailer(transport Transport, cfg Config, logger *logrus.Logger) (*Mailer, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Mailer{transport: transport, renderer: renderer, cfg: cfg, logger: logger}, nil
}

// OnboardingLink builds the client-facing onboarding form link
func (m *Mailer) OnboardingLink(clientID, businessID string) string {
	return fmt.Sprintf("https://%s/%s/%s", m.cfg.FrontendHost, clientID, businessID)
}

// AdminBusinessLink builds the dashboard link of a business
func AdminBusinessLink(businessID string) string {
	return fmt.Sprintf("%s/business/%s", AdminBaseURL, businessID)
}

// SendOnboarding sends the welcome email with the onboarding form link
func (m *Mailer) SendOnboarding(ctx context.Context, to, name, clientID, businessID string) error {
	return m.send(ctx, []string{to}, SubjectOnboarding, TemplateOnboarding, map[string]interface{}{
		"Name": name,
		"Link": m.OnboardingLink(clientID, businessID),
	})
}

// SendPaymentConfirmation confirms a payment for an existing business
func (m *Mailer) SendPaymentConfirmation(ctx context.Context, to, name, businessName string) error {
	return m.send(ctx, []string{to}, SubjectPaymentConfirmation, TemplatePaymentConfirmation, map[string]interface{}{
		"Name":         name,
		"Email":        to,
		"BusinessName": businessName,
	})
}

// SendPolicy sends the service policies when a business is registered
func (m *Mailer) SendPolicy(ctx context.Context, to, name, businessName string) error {
	return m.send(ctx, []string{to}, SubjectPolicy, TemplatePolicy, map[string]interface{}{
		"Name":         name,
		"BusinessName": businessName,
		"PolicyURL":    m.cfg.PolicyURL,
	})
}

// SendManagerInvite tells a manager they were added to a business
func (m *Mailer) SendManagerInvite(ctx context.Context, to, managerName, businessName, clientID, businessID string) error {
	return m.send(ctx, []string{to}, fmt.Sprintf(SubjectManagerInvite, businessName), TemplateManagerInvite, map[string]interface{}{
		"ManagerName":  managerName,
		"BusinessName": businessName,
		"Link":         m.OnboardingLink(clientID, businessID),
	})
}

// SendUploadNotification tells the internal team a business uploaded documents
func (m *Mailer) SendUploadNotification(ctx context.Context, businessName, businessID string, fileURLs []string) error {
	if len(m.cfg.InternalRecipients) == 0 {
		return nil
	}
	return m.send(ctx, m.cfg.InternalRecipients, fmt.Sprintf(SubjectUploadNotification, businessName), TemplateUploadNotification, map[string]interface{}{
		"BusinessName": businessName,
		"AdminLink":    AdminBusinessLink(businessID),
		"Files":        fileURLs,
	})
}

// SendUploadReminder nudges a business that has not uploaded any documents
func (m *Mailer) SendUploadReminder(ctx context.Context, to []string, businessName, clientID, businessID string) error {
	return m.send(ctx, to, fmt.Sprintf(SubjectUploadReminder, businessName), TemplateUploadReminder, map[string]interface{}{
		"BusinessName": businessName,
		"Link":         m.OnboardingLink(clientID, businessID),
	})
}

// SendDataDeletion confirms a client was forgotten
func (m *Mailer) SendDataDeletion(ctx context.Context, to, name string) error {
	return m.send(ctx, []string{to}, SubjectDataDeletion, TemplateDataDeletion, map[string]interface{}{
		"Name":         name,
		"SupportEmail": m.cfg.SupportEmail,
	})
}

// SendBusinessDeleted tells the owner a business was removed
func (m *Mailer) SendBusinessDeleted(ctx context.Context, to, name, businessName string) error {
	return m.send(ctx, []string{to}, fmt.Sprintf(SubjectBusinessDeleted, businessName), TemplateBusinessDeleted, map[string]interface{}{
		"Name":         name,
		"BusinessName": businessName,
		"SupportEmail": m.cfg.SupportEmail,
	})
}

func (m *Mailer) send(ctx context.Context, to []string, subject, templateName string, data map[string]interface{}) error {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("email %s has no recipients", templateName)
	}

	html, err := m.renderer.Render(templateName, data)
	if err != nil {
		return err
	}

	id, err := m.transport.Send(ctx, &Message{
		From:    m.cfg.From,
		To:      recipients,
		Subject: subject,
		HTML:    html,
		ReplyTo: m.cfg.SupportEmail,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}

	m.logger.WithFields(logrus.Fields{
		"template":   templateName,
		"recipients": len(recipients),
		"message_id": id,
		"transport":  m.transport.GetName(),
	}).Info("Email sent")
	return nil
}
