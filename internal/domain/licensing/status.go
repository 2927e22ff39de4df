package licensing

import (
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// encumbranceWaitYears is the compact-mandated waiting period after the most
// recent encumbrance is lifted before a licensee may purchase privileges
// again.  The test is strict less-than on elapsed time: a lift exactly two
// years ago is outside the wait period.
const encumbranceWaitYears = 2

// deactivatingUpdates are the history update types that take a license or
// privilege out of effect.
var deactivatingUpdates = map[ltypes.UpdateType]bool{
	ltypes.UpdateDeactivation:           true,
	ltypes.UpdateHomeJurisdictionChange: true,
	ltypes.UpdateLicenseDeactivation:    true,
}

// reactivatingUpdates are the history update types that put a license or
// privilege back into effect, superseding an earlier deactivation.
var reactivatingUpdates = map[ltypes.UpdateType]bool{
	ltypes.UpdateRenewal:   true,
	ltypes.UpdateIssuance:  true,
	ltypes.UpdatePurchased: true,
}

// IsExpired reports whether asOf falls on a strictly later calendar day than
// the expiration date.  Same-day is not expired.  An entity with no
// expiration date never expires.
func (l *License) IsExpired(asOf ltypes.Date) bool {
	if l.ExpireDate.IsZero() {
		return false
	}
	return asOf.After(l.ExpireDate)
}

// IsEncumbered reports whether any adverse action is still in effect
// (nil EndDate).  An entity with no adverse actions is never encumbered.
func (l *License) IsEncumbered() bool {
	for _, a := range l.AdverseActions {
		if !a.Lifted() {
			return true
		}
	}
	return false
}

// IsLatestLiftedEncumbranceWithinWaitPeriod reports whether the most recently
// lifted encumbrance was lifted strictly less than two years before asOf.
// A lift exactly two years ago is outside the wait; two years minus one day
// is inside.  Active (unlifted) encumbrances are ignored here — they are
// IsEncumbered's concern.  Returns false when no encumbrance has been lifted.
//
// When several adverse actions share the maximal lift date, the last one in
// stored order is taken; the result is the same either way, but the scan is
// deterministic with respect to upstream array order.
func (l *License) IsLatestLiftedEncumbranceWithinWaitPeriod(asOf ltypes.Date) bool {
	var latest *ltypes.Date
	for i := range l.AdverseActions {
		end := l.AdverseActions[i].EndDate
		if end == nil {
			continue
		}
		if latest == nil || !end.Before(*latest) {
			latest = end
		}
	}
	if latest == nil {
		return false
	}
	cutoff := asOf.AddDate(-encumbranceWaitYears, 0, 0)
	return latest.After(cutoff)
}

// IsAdminDeactivated reports whether the most recent status-affecting entry
// in the stored history is a deactivating update that no later renewal or
// reactivation has superseded.  History order is the upstream order; no
// re-sorting is applied.
func (l *License) IsAdminDeactivated() bool {
	deactivated := false
	for _, item := range l.History {
		switch {
		case deactivatingUpdates[item.UpdateType]:
			deactivated = true
		case reactivatingUpdates[item.UpdateType]:
			deactivated = false
		}
	}
	return deactivated
}

// IsUnderInvestigation reports whether any investigation is still open.
func (l *License) IsUnderInvestigation() bool {
	for _, inv := range l.Investigations {
		if inv.Ongoing() {
			return true
		}
	}
	return false
}

// IsCompactEligible reports whether the license carries the eligible
// compact-eligibility value.  Privileges carry EligibilityNA and are never
// compact-eligible themselves.
func (l *License) IsCompactEligible() bool {
	return l.Eligibility == ltypes.EligibilityEligible
}

// DisplayName composes the issuing state's name and the license-type name
// (or its abbreviation), joined by delimiter.  The state name comes from the
// entity when the upstream record carried one, otherwise from the resolver;
// "Unknown" when neither knows it.
func (l *License) DisplayName(resolver NameResolver, delimiter string, useAbbreviation bool) string {
	stateName := l.IssueState.Name
	if stateName == "" && resolver != nil {
		if name, ok := resolver.JurisdictionName(l.IssueState.Abbreviation); ok {
			stateName = name
		}
	}
	if stateName == "" {
		stateName = "Unknown"
	}

	typeName := l.LicenseType
	if useAbbreviation {
		typeName = l.LicenseTypeAbbreviation
		if typeName == "" && resolver != nil {
			if abbrev, ok := resolver.LicenseTypeAbbreviation(l.LicenseType); ok {
				typeName = abbrev
			}
		}
	} else if typeName == "" && resolver != nil {
		if name, ok := resolver.LicenseTypeName(l.LicenseTypeAbbreviation); ok {
			typeName = name
		}
	}
	if typeName == "" {
		typeName = "Unknown"
	}

	return stateName + delimiter + typeName
}
