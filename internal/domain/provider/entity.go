// Package provider implements the provider bounded context: the licensee
// aggregate that groups a person's home-jurisdiction licenses and compact
// privileges and derives licensee-level status from them.
package provider

import (
	"github.com/openregulatory/licensure/internal/domain/licensing"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// LicenseeStatus is the aggregate status of a provider across all of their
// licenses and privileges.
type LicenseeStatus string

const (
	LicenseeActive   LicenseeStatus = "active"
	LicenseeInactive LicenseeStatus = "inactive"
)

// Provider is the licensee aggregate.  Licenses holds both home-jurisdiction
// licenses and privileges, in upstream insertion order; the split is derived
// through each license's IsPrivilege flag rather than stored twice.
type Provider struct {
	ID               string `json:"id"`
	Compact          string `json:"compact"`
	HomeJurisdiction string `json:"home_jurisdiction"`

	GivenName  string `json:"given_name"`
	MiddleName string `json:"middle_name,omitempty"`
	FamilyName string `json:"family_name"`

	Licenses []*licensing.License `json:"licenses"`
}

// FullName composes the provider's display name, skipping absent parts.
func (p *Provider) FullName() string {
	name := p.GivenName
	if p.MiddleName != "" {
		if name != "" {
			name += " "
		}
		name += p.MiddleName
	}
	if p.FamilyName != "" {
		if name != "" {
			name += " "
		}
		name += p.FamilyName
	}
	return name
}

// HomeLicenses returns the provider's home-jurisdiction licenses in stored
// order.
func (p *Provider) HomeLicenses() []*licensing.License {
	out := make([]*licensing.License, 0, len(p.Licenses))
	for _, lic := range p.Licenses {
		if !lic.IsPrivilege {
			out = append(out, lic)
		}
	}
	return out
}

// Privileges returns the provider's compact privileges in stored order.
func (p *Provider) Privileges() []*licensing.License {
	out := make([]*licensing.License, 0, len(p.Licenses))
	for _, lic := range p.Licenses {
		if lic.IsPrivilege {
			out = append(out, lic)
		}
	}
	return out
}

// PrivilegeFor returns the provider's privilege for the given jurisdiction
// and license-type abbreviation, or nil.
func (p *Provider) PrivilegeFor(jurisdiction, licenseTypeAbbreviation string) *licensing.License {
	for _, lic := range p.Licenses {
		if lic.IsPrivilege &&
			lic.Jurisdiction == jurisdiction &&
			lic.LicenseTypeAbbreviation == licenseTypeAbbreviation {
			return lic
		}
	}
	return nil
}

// BestHomeLicense picks the home license the compact treats as the
// provider's current one: active licenses beat inactive ones, and within the
// same status the most recently issued wins.  Ties on issue date keep the
// later entry in stored order.  Returns nil when the provider has no home
// licenses.
func (p *Provider) BestHomeLicense() *licensing.License {
	var best *licensing.License
	for _, lic := range p.Licenses {
		if lic.IsPrivilege {
			continue
		}
		if best == nil || homeLicenseOutranks(lic, best) {
			best = lic
		}
	}
	return best
}

func homeLicenseOutranks(candidate, incumbent *licensing.License) bool {
	candidateActive := candidate.Status == ltypes.StatusActive
	incumbentActive := incumbent.Status == ltypes.StatusActive
	if candidateActive != incumbentActive {
		return candidateActive
	}
	return !candidate.IssueDate.Before(incumbent.IssueDate)
}

// Status derives the licensee-level status at asOf: active iff at least one
// license or privilege is unexpired, unencumbered, and not administratively
// deactivated.
func (p *Provider) Status(asOf ltypes.Date) LicenseeStatus {
	for _, lic := range p.Licenses {
		if lic.IsExpired(asOf) || lic.IsEncumbered() || lic.IsAdminDeactivated() {
			continue
		}
		return LicenseeActive
	}
	return LicenseeInactive
}

// DisplayName composes the provider's name with the best home license's
// jurisdiction and license type, e.g. "Jane Doe (Ohio - audiologist)".
// Falls back to the bare name when the provider has no home license.
func (p *Provider) DisplayName(resolver licensing.NameResolver) string {
	name := p.FullName()
	best := p.BestHomeLicense()
	if best == nil {
		return name
	}
	return name + " (" + best.DisplayName(resolver, " - ", false) + ")"
}
