package licensing

import (
	"fmt"
	"strings"

	"github.com/openregulatory/licensure/pkg/errors"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// Normalize maps a raw upstream record into the canonical License entity,
// dispatching on the record's type discriminator.  An unrecognised
// discriminator is the one hard failure at this boundary; everything else is
// permissive — the upstream boards evolve independently of this service and
// older or newer payload shapes must keep normalizing.
//
// Three generations of board API coexist and RawRecord is their superset;
// the mapping below coalesces each canonical field from the newest name that
// is populated:
//
//	licenseType  ← licenseType | occupation (v1)
//	status       ← status | statusState (v1)
//	eligibility  ← compactEligibility | statusCompact (v1)
//	issueDate    ← dateOfIssuance
//	renewalDate  ← dateOfRenewal
//	expireDate   ← dateOfExpiration
//	licenseeId   ← providerId
func Normalize(raw ltypes.RawRecord) (*License, error) {
	switch ltypes.RecordKind(raw.Type) {
	case ltypes.RecordKindLicense, ltypes.RecordKindLicenseHome:
		return normalizeRecord(raw, false), nil
	case ltypes.RecordKindPrivilege:
		return normalizeRecord(raw, true), nil
	default:
		return nil, errors.UnsupportedSchema(
			fmt.Sprintf("unknown record type %q", raw.Type),
		).WithDetail("providerId=" + raw.ProviderID)
	}
}

// NormalizeAll maps a batch of raw records, collecting the entities that
// normalize and returning the first schema error encountered alongside them.
// Callers that want best-effort ingest can use the partial result.
func NormalizeAll(raws []ltypes.RawRecord) ([]*License, error) {
	out := make([]*License, 0, len(raws))
	var firstErr error
	for _, raw := range raws {
		lic, err := Normalize(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, lic)
	}
	return out, firstErr
}

func normalizeRecord(raw ltypes.RawRecord, isPrivilege bool) *License {
	lic := &License{
		LicenseeID:              raw.ProviderID,
		IsPrivilege:             isPrivilege,
		Compact:                 raw.Compact,
		Jurisdiction:            raw.Jurisdiction,
		LicenseType:             coalesce(raw.LicenseType, raw.Occupation),
		LicenseTypeAbbreviation: raw.LicenseTypeAbbreviation,

		IssueDate:      parseDateLenient(raw.DateOfIssuance),
		RenewalDate:    parseDateLenient(raw.DateOfRenewal),
		ExpireDate:     parseDateLenient(raw.DateOfExpiration),
		ActiveFromDate: parseDateLenient(raw.ActiveFromDate),

		Status:            normalizeStatus(coalesce(raw.Status, raw.StatusState)),
		PersistedStatus:   normalizeStatus(raw.PersistedStatus),
		StatusDescription: raw.StatusDescription,
		Eligibility:       normalizeEligibility(raw, isPrivilege),
	}

	lic.ID = raw.ID
	if lic.ID == "" {
		lic.ID = deriveID(raw)
	}

	// Value objects are constructed unconditionally so display code never
	// nil-checks them.
	lic.IssueState = normalizeState(raw)
	lic.MailingAddress = normalizeAddress(raw.MailingAddress)

	lic.History = normalizeHistory(raw.History)
	lic.AdverseActions = normalizeAdverseActions(raw.AdverseActions)
	lic.Investigations = normalizeInvestigations(raw.Investigations)

	return lic
}

// deriveID composes the entity ID for records the upstream does not identify
// directly (privilege records, and license shapes predating server IDs).
func deriveID(raw ltypes.RawRecord) string {
	abbrev := raw.LicenseTypeAbbreviation
	if abbrev == "" {
		abbrev = raw.LicenseType
	}
	parts := []string{raw.ProviderID, raw.Jurisdiction, abbrev}
	return strings.ToLower(strings.Join(parts, "-"))
}

func normalizeStatus(s string) ltypes.LicenseStatus {
	switch strings.ToLower(s) {
	case "active":
		return ltypes.StatusActive
	default:
		// Upstream shapes report anything not affirmatively active as
		// inactive; unknown strings degrade the same way.
		return ltypes.StatusInactive
	}
}

func normalizeEligibility(raw ltypes.RawRecord, isPrivilege bool) ltypes.Eligibility {
	if isPrivilege {
		return ltypes.EligibilityNA
	}
	switch strings.ToLower(coalesce(raw.CompactEligibility, raw.StatusCompact)) {
	case "eligible":
		return ltypes.EligibilityEligible
	case "ineligible":
		return ltypes.EligibilityIneligible
	default:
		return ltypes.EligibilityNA
	}
}

func normalizeState(raw ltypes.RawRecord) State {
	if raw.IssueState != nil {
		return State{
			Abbreviation: raw.IssueState.Abbreviation,
			Name:         raw.IssueState.Name,
		}
	}
	return State{Abbreviation: raw.Jurisdiction}
}

func normalizeAddress(raw *ltypes.RawAddress) Address {
	if raw == nil {
		return Address{}
	}
	return Address{
		Street1:    raw.Street1,
		Street2:    raw.Street2,
		City:       raw.City,
		State:      raw.State,
		PostalCode: raw.PostalCode,
	}
}

// normalizeHistory preserves every update type the upstream sends.  Older
// board APIs only ship renewal entries for privileges; that filter is a
// property of the payload, not of this mapper.
func normalizeHistory(raws []ltypes.RawHistoryItem) []HistoryItem {
	out := make([]HistoryItem, 0, len(raws))
	for _, raw := range raws {
		out = append(out, HistoryItem{
			Kind:           ltypes.HistoryItemReal,
			UpdateType:     ltypes.UpdateType(raw.UpdateType),
			DateOfUpdate:   parseDateLenient(raw.DateOfUpdate),
			PreviousValues: normalizeSnapshot(raw.PreviousValues),
			UpdatedValues:  normalizeSnapshot(raw.UpdatedValues),
			Note:           raw.Note,
		})
	}
	return out
}

func normalizeSnapshot(raw *ltypes.RawRecordSnapshot) Snapshot {
	if raw == nil {
		return Snapshot{}
	}
	return Snapshot{
		IssueDate:    parseDateLenient(raw.DateOfIssuance),
		RenewalDate:  parseDateLenient(raw.DateOfRenewal),
		ExpireDate:   parseDateLenient(raw.DateOfExpiration),
		Status:       ltypes.LicenseStatus(raw.Status),
		Jurisdiction: raw.Jurisdiction,
	}
}

func normalizeAdverseActions(raws []ltypes.RawAdverseAction) []AdverseAction {
	out := make([]AdverseAction, 0, len(raws))
	for _, raw := range raws {
		action := AdverseAction{
			ID:           raw.ID,
			CreationDate: parseDateLenient(raw.CreationDate),
			StartDate:    parseDateLenient(raw.EffectiveStartDate),
		}
		if raw.EffectiveLiftDate != "" {
			if d := parseDateLenient(raw.EffectiveLiftDate); !d.IsZero() {
				action.EndDate = &d
			}
		}
		out = append(out, action)
	}
	return out
}

func normalizeInvestigations(raws []ltypes.RawInvestigation) []Investigation {
	out := make([]Investigation, 0, len(raws))
	for _, raw := range raws {
		inv := Investigation{
			ID:           raw.ID,
			CreationDate: parseDateLenient(raw.CreationDate),
		}
		if raw.EndDate != "" {
			if d := parseDateLenient(raw.EndDate); !d.IsZero() {
				inv.EndDate = &d
			}
		}
		out = append(out, inv)
	}
	return out
}

// parseDateLenient degrades malformed dates to the zero Date.  Missing and
// unparseable dates are indistinguishable downstream, which is the documented
// permissive-parsing stance at this boundary.
func parseDateLenient(s string) ltypes.Date {
	d, err := ltypes.ParseDate(s)
	if err != nil {
		return ltypes.Date{}
	}
	return d
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
