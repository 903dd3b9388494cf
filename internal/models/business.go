package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BUSINESS CLASSIFICATION & ONBOARDING STEPS
// ============================================================================

// BusinessType classifies the business being consulted
type BusinessType string

const (
	BusinessTypeRestaurant  BusinessType = "RESTAURANT"
	BusinessTypeCafeteria   BusinessType = "CAFETERIA"
	BusinessTypeBakery      BusinessType = "BAKERY"
	BusinessTypeBar         BusinessType = "BAR"
	BusinessTypeFoodTruck   BusinessType = "FOOD_TRUCK"
	BusinessTypeDarkKitchen BusinessType = "DARK_KITCHEN"
	BusinessTypeCatering    BusinessType = "CATERING"
	BusinessTypeRetail      BusinessType = "RETAIL"
	BusinessTypeServices    BusinessType = "SERVICES"
	BusinessTypeOther       BusinessType = "OTHER"
	BusinessTypeUnknown     BusinessType = "UNKNOWN"
)

var businessTypes = map[BusinessType]struct{}{
	BusinessTypeRestaurant:  {},
	BusinessTypeCafeteria:   {},
	BusinessTypeBakery:      {},
	BusinessTypeBar:         {},
	BusinessTypeFoodTruck:   {},
	BusinessTypeDarkKitchen: {},
	BusinessTypeCatering:    {},
	BusinessTypeRetail:      {},
	BusinessTypeServices:    {},
	BusinessTypeOther:       {},
	BusinessTypeUnknown:     {},
}

// IsValid reports whether the business type is recognized
func (t BusinessType) IsValid() bool {
	_, ok := businessTypes[t]
	return ok
}

// BusinessTypes returns every recognized business type in lexical order
func BusinessTypes() []BusinessType {
	types := make([]BusinessType, 0, len(businessTypes))
	for t := range businessTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// OnboardingStep tracks a business through the engagement phases
type OnboardingStep string

const (
	OnboardingStepOnBoarding          OnboardingStep = "ON_BOARDING"
	OnboardingStepTesisDeComunicacion OnboardingStep = "TESIS_DE_COMUNICACION"
	OnboardingStepAnalisisDeDatos     OnboardingStep = "ANALISIS_DE_DATOS"
	OnboardingStepAds                 OnboardingStep = "ADS"
	OnboardingStepProcesoDeVentas     OnboardingStep = "PROCESO_DE_VENTAS"
	OnboardingStepCompleted           OnboardingStep = "COMPLETADO"
)

// IsValid reports whether the onboarding step is a known value
func (s OnboardingStep) IsValid() bool {
	switch s {
	case OnboardingStepOnBoarding, OnboardingStepTesisDeComunicacion, OnboardingStepAnalisisDeDatos,
		OnboardingStepAds, OnboardingStepProcesoDeVentas, OnboardingStepCompleted:
		return true
	}
	return false
}

// DefaultBusinessAddress is stored for businesses created from a payment
const DefaultBusinessAddress = "Sin dirección"

// ============================================================================
// BUSINESS
// ============================================================================

// Business belongs to exactly one owner client
type Business struct {
	ID                    uuid.UUID      `json:"id" db:"id"`
	OwnerID               uuid.UUID      `json:"owner" db:"owner_id"`
	Name                  string         `json:"name" db:"name"`
	RUC                   *string        `json:"ruc,omitempty" db:"ruc"`
	Address               *string        `json:"address,omitempty" db:"address"`
	Phone                 *string        `json:"phone,omitempty" db:"phone"`
	Email                 *string        `json:"email,omitempty" db:"email"`
	BusinessType          BusinessType   `json:"businessType" db:"business_type"`
	ValueProposition      *string        `json:"valueProposition,omitempty" db:"value_proposition"`
	OnboardingStep        OnboardingStep `json:"onboardingStep" db:"onboarding_step"`
	Instagram             *string        `json:"instagram,omitempty" db:"instagram"`
	TikTok                *string        `json:"tiktok,omitempty" db:"tiktok"`
	Empleados             *string        `json:"empleados,omitempty" db:"empleados"`
	IngresoMensual        *string        `json:"ingresoMensual,omitempty" db:"ingreso_mensual"`
	IngresoAnual          *string        `json:"ingresoAnual,omitempty" db:"ingreso_anual"`
	DesafioPrincipal      *string        `json:"desafioPrincipal,omitempty" db:"desafio_principal"`
	ObjetivoIdeal         *string        `json:"objetivoIdeal,omitempty" db:"objetivo_ideal"`
	VendePorWhatsapp      *string        `json:"vendePorWhatsapp,omitempty" db:"vende_por_whatsapp"`
	GananciaWhatsapp      *string        `json:"gananciaWhatsapp,omitempty" db:"ganancia_whatsapp"`
	OnboardingCompletedAt *time.Time     `json:"onboardingCompletedAt,omitempty" db:"onboarding_completed_at"`
	CreatedAt             time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time      `json:"updatedAt" db:"updated_at"`

	Managers []*Manager      `json:"managers,omitempty" db:"-"`
	Files    []*BusinessFile `json:"files,omitempty" db:"-"`
}

// EditableBusinessFields maps the JSON keys accepted by the partial update
// endpoint to their column names
var EditableBusinessFields = map[string]string{
	"name":             "name",
	"ruc":              "ruc",
	"address":          "address",
	"phone":            "phone",
	"email":            "email",
	"businessType":     "business_type",
	"valueProposition": "value_proposition",
	"onboardingStep":   "onboarding_step",
	"instagram":        "instagram",
	"tiktok":           "tiktok",
	"empleados":        "empleados",
	"ingresoMensual":   "ingreso_mensual",
	"ingresoAnual":     "ingreso_anual",
	"desafioPrincipal": "desafio_principal",
	"objetivoIdeal":    "objetivo_ideal",
	"vendePorWhatsapp": "vende_por_whatsapp",
	"gananciaWhatsapp": "ganancia_whatsapp",
}

// ConsultancyIntake carries the free-form intake answers submitted with files
type ConsultancyIntake struct {
	Address          string `form:"address"`
	Phone            string `form:"phone"`
	Email            string `form:"email"`
	Instagram        string `form:"instagram"`
	TikTok           string `form:"tiktok"`
	Empleados        string `form:"empleados"`
	IngresoMensual   string `form:"ingresoMensual"`
	IngresoAnual     string `form:"ingresoAnual"`
	DesafioPrincipal string `form:"desafioPrincipal"`
	ObjetivoIdeal    string `form:"objetivoIdeal"`
	VendePorWhatsapp string `form:"vendePorWhatsapp"`
	GananciaWhatsapp string `form:"gananciaWhatsapp"`
}

// Columns returns the non-empty intake answers keyed by column name
func (i ConsultancyIntake) Columns() map[string]interface{} {
	values := map[string]string{
		"address":            i.Address,
		"phone":              i.Phone,
		"email":              i.Email,
		"instagram":          i.Instagram,
		"tiktok":             i.TikTok,
		"empleados":          i.Empleados,
		"ingreso_mensual":    i.IngresoMensual,
		"ingreso_anual":      i.IngresoAnual,
		"desafio_principal":  i.DesafioPrincipal,
		"objetivo_ideal":     i.ObjetivoIdeal,
		"vende_por_whatsapp": i.VendePorWhatsapp,
		"ganancia_whatsapp":  i.GananciaWhatsapp,
	}
	columns := make(map[string]interface{})
	for column, value := range values {
		if value != "" {
			columns[column] = value
		}
	}
	return columns
}

// ============================================================================
// SUB-RECORDS
// ============================================================================

// Manager is a person the owner delegated onboarding work to
type Manager struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID uuid.UUID `json:"businessId" db:"business_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Role       *string   `json:"role,omitempty" db:"role"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// BusinessFile is an uploaded intake document, one per form field
type BusinessFile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BusinessID   uuid.UUID `json:"businessId" db:"business_id"`
	FieldName    string    `json:"fieldName" db:"field_name"`
	URL          string    `json:"url" db:"url"`
	OriginalName string    `json:"originalName" db:"original_name"`
	UploadedAt   time.Time `json:"uploadedAt" db:"uploaded_at"`
}

// Handoff is the one-time sales-to-delivery summary of a business
type Handoff struct {
	ID             uuid.UUID `json:"id" db:"id"`
	BusinessID     uuid.UUID `json:"businessId" db:"business_id"`
	SalesRep       string    `json:"salesRep" db:"sales_rep"`
	PackageSold    string    `json:"packageSold" db:"package_sold"`
	Expectations   *string   `json:"expectations,omitempty" db:"expectations"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
	AdditionalData JSONB     `json:"additionalData,omitempty" db:"additional_data"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// ReminderTarget is a business that still has no intake documents
type ReminderTarget struct {
	BusinessID    uuid.UUID `db:"business_id"`
	BusinessName  string    `db:"business_name"`
	BusinessEmail *string   `db:"business_email"`
	OwnerID       uuid.UUID `db:"owner_id"`
	OwnerEmail    string    `db:"owner_email"`
}

// ManagerRequest is the body of the add-manager operation
type ManagerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandoffRequest is the body of the handoff operation
type HandoffRequest struct {
	SalesRep       string `json:"salesRep" binding:"required"`
	PackageSold    string `json:"packageSold" binding:"required"`
	Expectations   string `json:"expectations"`
	Notes          string `json:"notes"`
	AdditionalData JSONB  `json:"additionalData"`
}

// IntakeResult is returned after consultancy data and files were stored
type IntakeResult struct {
	Message    string            `json:"message"`
	BusinessID uuid.UUID         `json:"businessId"`
	FilePaths  map[string]string `json:"filePaths"`
}
