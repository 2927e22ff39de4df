// Package licensing implements the licensing bounded context: the canonical
// license/privilege entity, the normalization of heterogeneous upstream board
// records into that entity, the derivation of effective status from dates and
// mutation history, and the fabrication of display timelines.  All business
// rules that concern licenses live here; infrastructure concerns (persistence,
// search, caching) are handled by separate repository and adapter layers.
package licensing

import (
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// State identifies the jurisdiction that issued a license.  It is a value
// object and is always present on an entity, defaulting to the empty State;
// display code never has to nil-check it.
type State struct {
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

// Address is a mailing address value object.  Like State it is always
// present, defaulting to the empty Address.
type Address struct {
	Street1    string `json:"street1"`
	Street2    string `json:"street2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// IsEmpty reports whether no address field is populated.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// AdverseAction is an encumbrance placed on a license by a board.  A nil
// EndDate means the encumbrance is still in effect (unlifted).
type AdverseAction struct {
	ID           string       `json:"id"`
	CreationDate ltypes.Date  `json:"creation_date"`
	StartDate    ltypes.Date  `json:"start_date"`
	EndDate      *ltypes.Date `json:"end_date"`
}

// Lifted reports whether the encumbrance has been lifted.
func (a AdverseAction) Lifted() bool {
	return a.EndDate != nil
}

// Investigation is an open or closed board investigation.  A nil EndDate
// means the investigation is ongoing.
type Investigation struct {
	ID           string       `json:"id"`
	CreationDate ltypes.Date  `json:"creation_date"`
	EndDate      *ltypes.Date `json:"end_date"`
}

// Ongoing reports whether the investigation is still open.
func (i Investigation) Ongoing() bool {
	return i.EndDate == nil
}

// License is the canonical entity for both license and privilege records.
// The two upstream record kinds share this shape; IsPrivilege discriminates.
// Entities are constructed fresh per upstream payload by the normalizer and
// are read-only afterwards — there is no mutation path outside construction,
// so every evaluator method on the type is a pure function of the entity and
// an explicit reference date.
type License struct {
	// ID is server-supplied for licenses and derived for privileges
	// (providerID-jurisdiction-licenseTypeAbbreviation).
	ID          string `json:"id"`
	LicenseeID  string `json:"licensee_id"`
	IsPrivilege bool   `json:"is_privilege"`
	Compact     string `json:"compact"`

	Jurisdiction            string `json:"jurisdiction"`
	LicenseType             string `json:"license_type"`
	LicenseTypeAbbreviation string `json:"license_type_abbreviation"`

	// Temporal attributes.  The zero Date means the upstream record did not
	// carry the field.
	IssueDate      ltypes.Date `json:"issue_date"`
	RenewalDate    ltypes.Date `json:"renewal_date"`
	ExpireDate     ltypes.Date `json:"expire_date"`
	ActiveFromDate ltypes.Date `json:"active_from_date"`

	// Status is the upstream-reported status; PersistedStatus is the stored
	// status in board APIs that split the two.  Derived status (expired,
	// encumbered, deactivated) is computed, never stored — see status.go.
	Status            ltypes.LicenseStatus `json:"status"`
	PersistedStatus   ltypes.LicenseStatus `json:"persisted_status"`
	StatusDescription string               `json:"status_description"`
	Eligibility       ltypes.Eligibility   `json:"eligibility"`

	IssueState     State   `json:"issue_state"`
	MailingAddress Address `json:"mailing_address"`

	// History is the ordered mutation history as received from upstream.
	// Order is preserved exactly; the evaluator and the timeline builder
	// both depend on stored order, not on re-sorting.
	History        []HistoryItem   `json:"history"`
	AdverseActions []AdverseAction `json:"adverse_actions"`
	Investigations []Investigation `json:"investigations"`
}

// ToServer is the write-back transform.  Only the ID round-trips; the
// upstream boards own every other field.
func (l *License) ToServer() ltypes.ServerRecord {
	return ltypes.ServerRecord{ID: l.ID}
}

// ToDTO converts the entity to its API shape, attaching the derived status
// block evaluated at asOf with the given resolver.
func (l *License) ToDTO(asOf ltypes.Date, resolver NameResolver) ltypes.LicenseDTO {
	dto := ltypes.LicenseDTO{
		ID:                      l.ID,
		LicenseeID:              l.LicenseeID,
		IsPrivilege:             l.IsPrivilege,
		Compact:                 l.Compact,
		Jurisdiction:            l.Jurisdiction,
		LicenseType:             l.LicenseType,
		LicenseTypeAbbreviation: l.LicenseTypeAbbreviation,
		IssueDate:               l.IssueDate,
		RenewalDate:             l.RenewalDate,
		ExpireDate:              l.ExpireDate,
		ActiveFromDate:          l.ActiveFromDate,
		Status:                  l.Status,
		PersistedStatus:         l.PersistedStatus,
		StatusDescription:       l.StatusDescription,
		Eligibility:             l.Eligibility,
		IssueState: ltypes.StateDTO{
			Abbreviation: l.IssueState.Abbreviation,
			Name:         l.IssueState.Name,
		},
		MailingAddress: ltypes.AddressDTO{
			Street1:    l.MailingAddress.Street1,
			Street2:    l.MailingAddress.Street2,
			City:       l.MailingAddress.City,
			State:      l.MailingAddress.State,
			PostalCode: l.MailingAddress.PostalCode,
		},
		Derived: ltypes.DerivedStatusDTO{
			AsOf:                        asOf,
			Expired:                     l.IsExpired(asOf),
			Encumbered:                  l.IsEncumbered(),
			LiftedEncumbranceWithinWait: l.IsLatestLiftedEncumbranceWithinWaitPeriod(asOf),
			AdminDeactivated:            l.IsAdminDeactivated(),
			UnderInvestigation:          l.IsUnderInvestigation(),
			CompactEligible:             l.IsCompactEligible(),
			DisplayName:                 l.DisplayName(resolver, " - ", false),
		},
	}

	dto.History = make([]ltypes.HistoryItemDTO, len(l.History))
	for i, h := range l.History {
		dto.History[i] = h.ToDTO()
	}

	dto.AdverseActions = make([]ltypes.AdverseActionDTO, len(l.AdverseActions))
	for i, a := range l.AdverseActions {
		dto.AdverseActions[i] = ltypes.AdverseActionDTO{
			ID:           a.ID,
			CreationDate: a.CreationDate,
			StartDate:    a.StartDate,
			EndDate:      a.EndDate,
		}
	}

	dto.Investigations = make([]ltypes.InvestigationDTO, len(l.Investigations))
	for i, inv := range l.Investigations {
		dto.Investigations[i] = ltypes.InvestigationDTO{
			ID:           inv.ID,
			CreationDate: inv.CreationDate,
			EndDate:      inv.EndDate,
		}
	}

	return dto
}
