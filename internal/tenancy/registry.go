package tenancy

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strings"
)

// Registry maps request origins to tenant contexts. The data is static for
// the life of the process; refreshes happen out-of-band by restarting with a
// new TENANT_REGISTRY_JSON.
type Registry struct {
	exact      map[string]Context
	subdomains []subdomainRule
	fallback   Context
}

type subdomainRule struct {
	label  string
	tenant Context
}

// Entry is one registry row as configured.
type Entry struct {
	Hostname  string       `json:"hostname,omitempty"`
	Subdomain string       `json:"subdomain,omitempty"`
	TenantID  string       `json:"tenant_id"`
	Specialty Specialty    `json:"specialty"`
	Features  FeatureFlags `json:"features"`
	Branding  Branding     `json:"branding"`
}

// NewRegistry builds a registry from entries. Each entry must name a tenant
// id and at least one of hostname or subdomain.
func NewRegistry(entries []Entry, fallback Context) (*Registry, error) {
	if fallback.TenantID == "" {
		return nil, fmt.Errorf("tenancy: default tenant id is required")
	}
	fallback.IsDefault = true

	r := &Registry{
		exact:    make(map[string]Context, len(entries)),
		fallback: fallback,
	}
	for i, e := range entries {
		if e.TenantID == "" {
			return nil, fmt.Errorf("tenancy: entry %d: tenant id is required", i)
		}
		if e.Hostname == "" && e.Subdomain == "" {
			return nil, fmt.Errorf("tenancy: entry %d (%s): hostname or subdomain required", i, e.TenantID)
		}
		tc := Context{
			TenantID:  e.TenantID,
			Specialty: e.Specialty,
			Features:  e.Features,
			Branding:  e.Branding,
		}
		if tc.Specialty == "" {
			tc.Specialty = SpecialtyGeneral
		}
		if host := normalizeHost(e.Hostname); host != "" {
			if _, dup := r.exact[host]; dup {
				return nil, fmt.Errorf("tenancy: duplicate hostname %q", host)
			}
			r.exact[host] = tc
		}
		if label := strings.ToLower(strings.TrimSpace(e.Subdomain)); label != "" {
			r.subdomains = append(r.subdomains, subdomainRule{label: label, tenant: tc})
		}
	}
	// Longest label first so "midwest-dental-sleep" wins over "dental".
	sort.SliceStable(r.subdomains, func(i, j int) bool {
		return len(r.subdomains[i].label) > len(r.subdomains[j].label)
	})
	return r, nil
}

// LoadRegistryJSON parses a JSON registry document of the form
// {"default": {...entry...}, "tenants": [...entries...]}.
func LoadRegistryJSON(raw string) (*Registry, error) {
	var doc struct {
		Default Entry   `json:"default"`
		Tenants []Entry `json:"tenants"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("tenancy: parse registry json: %w", err)
	}
	fallback := Context{
		TenantID:  doc.Default.TenantID,
		Specialty: doc.Default.Specialty,
		Features:  doc.Default.Features,
		Branding:  doc.Default.Branding,
	}
	if fallback.Specialty == "" {
		fallback.Specialty = SpecialtyGeneral
	}
	return NewRegistry(doc.Tenants, fallback)
}

// Resolve maps an origin to a tenant context. Matching is case-insensitive,
// the port is ignored, and an unknown origin always yields the default
// tenant: resolution never fails, unrecognized domains must not lock users
// out.
func (r *Registry) Resolve(host, path string) Context {
	_ = path // reserved for path-prefix routing
	host = normalizeHost(host)
	if host == "" {
		return r.fallback
	}
	if tc, ok := r.exact[host]; ok {
		return tc
	}
	for _, rule := range r.subdomains {
		if strings.Contains(host, rule.label) {
			return rule.tenant
		}
	}
	return r.fallback
}

// Default returns the fallback tenant context.
func (r *Registry) Default() Context {
	return r.fallback
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
