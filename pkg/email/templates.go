package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Template names, one per email kind
const (
	TemplateOnboarding          = "onboarding"
	TemplatePaymentConfirmation = "payment_confirmation"
	TemplatePolicy              = "policy"
	TemplateManagerInvite       = "manager_invite"
	TemplateUploadNotification  = "upload_notification"
	TemplateUploadReminder      = "upload_reminder"
	TemplateDataDeletion        = "data_deletion"
	TemplateBusinessDeleted     = "business_deleted"
)

var templateNames = []string{
	TemplateOnboarding,
	TemplatePaymentConfirmation,
	TemplatePolicy,
	TemplateManagerInvite,
	TemplateUploadNotification,
	TemplateUploadReminder,
	TemplateDataDeletion,
	TemplateBusinessDeleted,
}

// Renderer renders the embedded HTML templates inside the shared layout
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every embedded template
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(templateNames))}
	for _, name := range templateNames {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render executes a named template with the given data
func (r *Renderer) Render(name string, data interface{}) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
