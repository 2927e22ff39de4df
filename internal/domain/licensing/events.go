package licensing

import (
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// Event type names as published on the message bus.
const (
	EventTypeLicenseUpserted      = "license.upserted"
	EventTypeLicenseStatusChanged = "license.status_changed"
)

// LicenseUpsertedEvent is emitted whenever an ingest pass writes a license,
// whether or not anything material changed.
type LicenseUpsertedEvent struct {
	common.BaseEvent
	LicenseID   string `json:"license_id"`
	LicenseeID  string `json:"licensee_id"`
	Compact     string `json:"compact"`
	IsPrivilege bool   `json:"is_privilege"`
}

// NewLicenseUpsertedEvent builds the event for a freshly written license.
func NewLicenseUpsertedEvent(lic *License) LicenseUpsertedEvent {
	return LicenseUpsertedEvent{
		BaseEvent:   common.NewBaseEvent(lic.ID),
		LicenseID:   lic.ID,
		LicenseeID:  lic.LicenseeID,
		Compact:     lic.Compact,
		IsPrivilege: lic.IsPrivilege,
	}
}

// LicenseStatusChangedEvent is emitted when an ingest pass observes a
// different upstream status than the stored revision carried.
type LicenseStatusChangedEvent struct {
	common.BaseEvent
	LicenseID  string               `json:"license_id"`
	LicenseeID string               `json:"licensee_id"`
	Previous   ltypes.LicenseStatus `json:"previous"`
	Current    ltypes.LicenseStatus `json:"current"`
}

// NewLicenseStatusChangedEvent builds the status-transition event.
func NewLicenseStatusChangedEvent(lic *License, previous ltypes.LicenseStatus) LicenseStatusChangedEvent {
	return LicenseStatusChangedEvent{
		BaseEvent:  common.NewBaseEvent(lic.ID),
		LicenseID:  lic.ID,
		LicenseeID: lic.LicenseeID,
		Previous:   previous,
		Current:    lic.Status,
	}
}
