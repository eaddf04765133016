package tenancy

// DefaultRegistry returns the built-in tenant registry used when no
// TENANT_REGISTRY_JSON override is supplied.
func DefaultRegistry(defaultTenantID string) *Registry {
	if defaultTenantID == "" {
		defaultTenantID = "flowiq-default"
	}
	fallback := Context{
		TenantID:  defaultTenantID,
		Specialty: SpecialtyGeneral,
		Features: FeatureFlags{
			OnlineBooking:  true,
			EmailReminders: true,
		},
		Branding: Branding{
			DisplayName:  "FlowIQ Scheduling",
			PrimaryColor: "#1f6feb",
		},
	}
	entries := []Entry{
		{
			Hostname:  "midwest-dental-sleep.flow-iq.ai",
			Subdomain: "midwest-dental-sleep",
			TenantID:  "midwest-dental-sleep",
			Specialty: SpecialtyDentalSleep,
			Features: FeatureFlags{
				OnlineBooking:  true,
				SMSReminders:   true,
				EmailReminders: true,
				RealtimeFeed:   true,
				ProviderPortal: true,
			},
			Branding: Branding{
				DisplayName:  "Midwest Dental Sleep",
				PrimaryColor: "#0b5394",
			},
		},
		{
			Hostname:  "west-county-spine.flow-iq.ai",
			Subdomain: "west-county-spine",
			TenantID:  "west-county-spine",
			Specialty: SpecialtyChiropractic,
			Features: FeatureFlags{
				OnlineBooking:    true,
				SMSReminders:     true,
				EmailReminders:   true,
				RealtimeFeed:     true,
				SelfRescheduling: true,
			},
			Branding: Branding{
				DisplayName:  "West County Spine & Joint",
				PrimaryColor: "#38761d",
			},
		},
		{
			Subdomain: "radiance-medspa",
			TenantID:  "radiance-medspa",
			Specialty: SpecialtyMedSpa,
			Features: FeatureFlags{
				OnlineBooking:  true,
				SMSReminders:   true,
				EmailReminders: true,
			},
			Branding: Branding{
				DisplayName:  "Radiance MedSpa",
				PrimaryColor: "#a64d79",
			},
		},
	}
	// Entries above are validated at build time; a panic here means the
	// compiled-in table itself is broken.
	r, err := NewRegistry(entries, fallback)
	if err != nil {
		panic("tenancy: invalid built-in registry: " + err.Error())
	}
	return r
}
