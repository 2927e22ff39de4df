// Package licensing defines the transport-level types of the licensing
// bounded context: enums shared across layers, the raw upstream record
// shapes received from member-state boards, and the DTOs exposed by the
// API.  The raw shapes here are the effective schema contract with the
// upstream boards; any new upstream field must be added here and mapped in
// internal/domain/licensing/normalize.go.
package licensing

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the day-granularity wire format used by all upstream boards.
const DateLayout = "2006-01-02"

// Date is a timezone-naive calendar date.  The zero value means "absent";
// upstream payloads routinely omit dates and the platform never treats that
// as an error.  All comparisons are day-granularity: upstream datetime
// strings that leak through are truncated at parse time, never converted
// between timezones.
type Date struct {
	t time.Time
}

// NewDate constructs a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an upstream date string.  Datetime strings are accepted
// and truncated to the day.  Empty input yields the zero Date and no error.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns the underlying midnight-UTC instant.
func (d Date) Time() time.Time { return d.t }

// After reports whether d falls on a strictly later calendar day than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Before reports whether d falls on a strictly earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// Equal reports whether the two dates fall on the same calendar day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// AddDate returns d shifted by the given years, months, days.
func (d Date) AddDate(years, months, days int) Date {
	if d.IsZero() {
		return Date{}
	}
	return DateOf(d.t.AddDate(years, months, days))
}

// String renders the wire format, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON renders the wire format; the zero Date marshals as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the wire format, RFC 3339 datetimes, or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RecordKind is the upstream record discriminator.
type RecordKind string

const (
	RecordKindLicense     RecordKind = "license"
	RecordKindLicenseHome RecordKind = "license-home"
	RecordKindPrivilege   RecordKind = "privilege"
)

// LicenseStatus is the persisted status of a license or privilege.
type LicenseStatus string

const (
	StatusActive   LicenseStatus = "active"
	StatusInactive LicenseStatus = "inactive"
)

// Eligibility is the compact-eligibility value of a license.  Privileges
// carry EligibilityNA: eligibility is a property of the underlying home
// license, not of the privilege itself.
type Eligibility string

const (
	EligibilityEligible   Eligibility = "eligible"
	EligibilityIneligible Eligibility = "ineligible"
	EligibilityNA         Eligibility = "n/a"
)

// UpdateType classifies a history entry.
type UpdateType string

const (
	UpdateRenewal                UpdateType = "renewal"
	UpdateDeactivation           UpdateType = "deactivation"
	UpdateHomeJurisdictionChange UpdateType = "homeJurisdictionChange"
	UpdateIssuance               UpdateType = "issuance"
	UpdateExpiration             UpdateType = "expiration"
	UpdateEncumbrance            UpdateType = "encumbrance"
	UpdateLiftingEncumbrance     UpdateType = "lifting_encumbrance"
	UpdateLicenseDeactivation    UpdateType = "licenseDeactivation"
	UpdateInvestigation          UpdateType = "investigation"
	UpdatePurchased              UpdateType = "purchased"
)

// HistoryItemKind separates real upstream updates from events fabricated for
// display by the timeline builder.
type HistoryItemKind string

const (
	HistoryItemReal       HistoryItemKind = "update"
	HistoryItemFabricated HistoryItemKind = "fabricated"
)

// Raw upstream shapes.
//
// Three generations of board API coexist.  RawRecord is the superset; every
// field is optional and version mappers in the domain layer pick the fields
// their generation actually populates.
//
//	v1: occupation, statusState, statusCompact
//	v2: licenseType, status
//	v3: adds compact, history, compactEligibility, investigations,
//	    persistedStatus

// RawRecord is a single upstream license or privilege record.
type RawRecord struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	ProviderID string `json:"providerId,omitempty"`

	Compact                 string `json:"compact,omitempty"`
	Jurisdiction            string `json:"jurisdiction,omitempty"`
	LicenseType             string `json:"licenseType,omitempty"`
	LicenseTypeAbbreviation string `json:"licenseTypeAbbreviation,omitempty"`

	// v1 names
	Occupation    string `json:"occupation,omitempty"`
	StatusState   string `json:"statusState,omitempty"`
	StatusCompact string `json:"statusCompact,omitempty"`

	DateOfIssuance   string `json:"dateOfIssuance,omitempty"`
	DateOfRenewal    string `json:"dateOfRenewal,omitempty"`
	DateOfExpiration string `json:"dateOfExpiration,omitempty"`
	ActiveFromDate   string `json:"activeFromDate,omitempty"`

	Status             string `json:"status,omitempty"`
	PersistedStatus    string `json:"persistedStatus,omitempty"`
	StatusDescription  string `json:"statusDescription,omitempty"`
	CompactEligibility string `json:"compactEligibility,omitempty"`

	MailingAddress *RawAddress `json:"mailingAddress,omitempty"`
	IssueState     *RawState   `json:"issueState,omitempty"`

	History        []RawHistoryItem    `json:"history,omitempty"`
	AdverseActions []RawAdverseAction  `json:"adverseActions,omitempty"`
	Investigations []RawInvestigation  `json:"investigations,omitempty"`
}

// RawHistoryItem is an upstream update record.
type RawHistoryItem struct {
	Type           string             `json:"type,omitempty"`
	UpdateType     string             `json:"updateType"`
	DateOfUpdate   string             `json:"dateOfUpdate"`
	PreviousValues *RawRecordSnapshot `json:"previous,omitempty"`
	UpdatedValues  *RawRecordSnapshot `json:"updatedValues,omitempty"`
	Note           string             `json:"note,omitempty"`
}

// RawRecordSnapshot is the partial diff carried by a history entry.
type RawRecordSnapshot struct {
	DateOfIssuance   string `json:"dateOfIssuance,omitempty"`
	DateOfRenewal    string `json:"dateOfRenewal,omitempty"`
	DateOfExpiration string `json:"dateOfExpiration,omitempty"`
	Status           string `json:"status,omitempty"`
	Jurisdiction     string `json:"jurisdiction,omitempty"`
}

// RawAdverseAction is an upstream encumbrance record.
type RawAdverseAction struct {
	ID                 string `json:"id,omitempty"`
	CreationDate       string `json:"creationDate,omitempty"`
	EffectiveStartDate string `json:"effectiveStartDate,omitempty"`
	EffectiveLiftDate  string `json:"effectiveLiftDate,omitempty"`
	ClinicalPrivilegeActionCategory string `json:"clinicalPrivilegeActionCategory,omitempty"`
}

// RawInvestigation is an upstream investigation record.
type RawInvestigation struct {
	ID           string `json:"id,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
}

// RawAddress is an upstream mailing address.
type RawAddress struct {
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// RawState is an upstream jurisdiction reference.
type RawState struct {
	Abbreviation string `json:"abbrev,omitempty"`
	Name         string `json:"name,omitempty"`
}

// API DTOs.

// AddressDTO mirrors the canonical mailing address.
type AddressDTO struct {
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// StateDTO mirrors the canonical jurisdiction value object.
type StateDTO struct {
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

// HistoryItemDTO is a single timeline entry, real or fabricated.
type HistoryItemDTO struct {
	Kind         HistoryItemKind `json:"kind"`
	UpdateType   UpdateType      `json:"update_type"`
	DateOfUpdate Date            `json:"date_of_update"`
	Note         string          `json:"note,omitempty"`
}

// AdverseActionDTO mirrors the canonical encumbrance.
type AdverseActionDTO struct {
	ID           string `json:"id"`
	CreationDate Date   `json:"creation_date"`
	StartDate    Date   `json:"start_date"`
	EndDate      *Date  `json:"end_date"`
}

// InvestigationDTO mirrors the canonical investigation.
type InvestigationDTO struct {
	ID           string `json:"id"`
	CreationDate Date   `json:"creation_date"`
	EndDate      *Date  `json:"end_date"`
}

// LicenseDTO is the canonical license-or-privilege entity as served by the
// API, including the derived status block.
type LicenseDTO struct {
	ID          string     `json:"id"`
	LicenseeID  string     `json:"licensee_id"`
	IsPrivilege bool       `json:"is_privilege"`
	Compact     string     `json:"compact,omitempty"`

	Jurisdiction            string `json:"jurisdiction"`
	LicenseType             string `json:"license_type"`
	LicenseTypeAbbreviation string `json:"license_type_abbreviation,omitempty"`

	IssueDate      Date `json:"issue_date"`
	RenewalDate    Date `json:"renewal_date"`
	ExpireDate     Date `json:"expire_date"`
	ActiveFromDate Date `json:"active_from_date"`

	Status            LicenseStatus `json:"status"`
	PersistedStatus   LicenseStatus `json:"persisted_status,omitempty"`
	StatusDescription string        `json:"status_description,omitempty"`
	Eligibility       Eligibility   `json:"eligibility"`

	IssueState     StateDTO   `json:"issue_state"`
	MailingAddress AddressDTO `json:"mailing_address"`

	History        []HistoryItemDTO   `json:"history"`
	AdverseActions []AdverseActionDTO `json:"adverse_actions"`
	Investigations []InvestigationDTO `json:"investigations"`

	Derived DerivedStatusDTO `json:"derived"`
}

// DerivedStatusDTO is the evaluator output block attached to every served
// license.
type DerivedStatusDTO struct {
	AsOf                         Date   `json:"as_of"`
	Expired                      bool   `json:"expired"`
	Encumbered                   bool   `json:"encumbered"`
	LiftedEncumbranceWithinWait  bool   `json:"lifted_encumbrance_within_wait"`
	AdminDeactivated             bool   `json:"admin_deactivated"`
	UnderInvestigation           bool   `json:"under_investigation"`
	CompactEligible              bool   `json:"compact_eligible"`
	DisplayName                  string `json:"display_name"`
}

// ServerRecord is the write-back transform: the original system round-trips
// the ID field only.
type ServerRecord struct {
	ID string `json:"id"`
}
