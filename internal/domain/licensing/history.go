package licensing

import (
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// Snapshot is the partial diff of the parent entity carried by a history
// entry.  Only the fields the upstream update actually touched are populated;
// the rest stay zero.
type Snapshot struct {
	IssueDate    ltypes.Date          `json:"issue_date"`
	RenewalDate  ltypes.Date          `json:"renewal_date"`
	ExpireDate   ltypes.Date          `json:"expire_date"`
	Status       ltypes.LicenseStatus `json:"status"`
	Jurisdiction string               `json:"jurisdiction"`
}

// HistoryItem is one entry in a license's mutation history.  Kind separates
// real upstream updates from events fabricated for display by
// HistoryWithFabricatedEvents.
type HistoryItem struct {
	Kind           ltypes.HistoryItemKind `json:"kind"`
	UpdateType     ltypes.UpdateType      `json:"update_type"`
	DateOfUpdate   ltypes.Date            `json:"date_of_update"`
	PreviousValues Snapshot               `json:"previous_values"`
	UpdatedValues  Snapshot               `json:"updated_values"`
	Note           string                 `json:"note,omitempty"`
}

// Fabricated reports whether the item was synthesized for display.
func (h HistoryItem) Fabricated() bool {
	return h.Kind == ltypes.HistoryItemFabricated
}

// ToDTO converts the item to its API shape.
func (h HistoryItem) ToDTO() ltypes.HistoryItemDTO {
	return ltypes.HistoryItemDTO{
		Kind:         h.Kind,
		UpdateType:   h.UpdateType,
		DateOfUpdate: h.DateOfUpdate,
		Note:         h.Note,
	}
}

// fabricatedEvent builds a synthetic display event.
func fabricatedEvent(updateType ltypes.UpdateType, date ltypes.Date) HistoryItem {
	return HistoryItem{
		Kind:         ltypes.HistoryItemFabricated,
		UpdateType:   updateType,
		DateOfUpdate: date,
	}
}

// HistoryWithFabricatedEvents expands the stored history into the display
// timeline:
//
//  1. A synthetic "purchased" event at the issue date is prepended.
//  2. For each renewal whose previous expiration predates the renewal itself
//     (the prior grant had lapsed before being renewed), a synthetic
//     "expiration" event dated at that prior expiration is inserted
//     immediately before the renewal.
//  3. A trailing synthetic "expiration" at the current expiration date is
//     appended when the entity is expired as of asOf.
//
// The relative order of real events is always preserved; synthetic events are
// inserted only adjacent to the event that motivated them.  Well-formed input
// therefore yields a non-decreasing-by-date sequence, but out-of-order input
// is passed through positionally stable rather than re-sorted.
func (l *License) HistoryWithFabricatedEvents(asOf ltypes.Date) []HistoryItem {
	timeline := make([]HistoryItem, 0, len(l.History)+2)

	if !l.IssueDate.IsZero() {
		timeline = append(timeline, fabricatedEvent(ltypes.UpdatePurchased, l.IssueDate))
	}

	for _, item := range l.History {
		if item.UpdateType == ltypes.UpdateRenewal &&
			!item.PreviousValues.ExpireDate.IsZero() &&
			item.PreviousValues.ExpireDate.Before(item.DateOfUpdate) {
			timeline = append(timeline, fabricatedEvent(ltypes.UpdateExpiration, item.PreviousValues.ExpireDate))
		}
		timeline = append(timeline, item)
	}

	if l.IsExpired(asOf) {
		timeline = append(timeline, fabricatedEvent(ltypes.UpdateExpiration, l.ExpireDate))
	}

	return timeline
}
