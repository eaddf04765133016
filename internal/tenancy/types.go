package tenancy

// Specialty classifies a practice type and drives feature selection.
type Specialty string

const (
	SpecialtyGeneral      Specialty = "general"
	SpecialtyChiropractic Specialty = "chiropractic"
	SpecialtyDentalSleep  Specialty = "dental-sleep"
	SpecialtyMedSpa       Specialty = "med-spa"
	SpecialtyOrthodontics Specialty = "orthodontics"
)

// FeatureFlags is the closed set of per-tenant feature switches. Unknown
// flags are a registry validation error, not a silently-carried map key.
type FeatureFlags struct {
	OnlineBooking    bool `json:"online_booking"`
	SMSReminders     bool `json:"sms_reminders"`
	EmailReminders   bool `json:"email_reminders"`
	RealtimeFeed     bool `json:"realtime_feed"`
	ProviderPortal   bool `json:"provider_portal"`
	SelfRescheduling bool `json:"self_rescheduling"`
}

// Branding carries the display configuration a tenant's UI variant needs.
type Branding struct {
	DisplayName  string `json:"display_name"`
	PrimaryColor string `json:"primary_color"`
	LogoURL      string `json:"logo_url,omitempty"`
}

// Context is the resolved identity and configuration scoping a request.
type Context struct {
	TenantID  string       `json:"tenant_id"`
	Specialty Specialty    `json:"specialty"`
	Features  FeatureFlags `json:"features"`
	Branding  Branding     `json:"branding"`
	IsDefault bool         `json:"is_default"`
}
