package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openregulatory/licensure/internal/domain/licensing"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

func date(year int, month time.Month, day int) ltypes.Date {
	return ltypes.NewDate(year, month, day)
}

func homeLicense(id string, status ltypes.LicenseStatus, issued ltypes.Date) *licensing.License {
	return &licensing.License{
		ID:          id,
		Status:      status,
		IssueDate:   issued,
		LicenseType: "audiologist",
		IssueState:  licensing.State{Abbreviation: "oh", Name: "Ohio"},
	}
}

func privilege(id, jurisdiction, abbrev string) *licensing.License {
	return &licensing.License{
		ID:                      id,
		IsPrivilege:             true,
		Jurisdiction:            jurisdiction,
		LicenseTypeAbbreviation: abbrev,
	}
}

func TestFullName(t *testing.T) {
	p := &Provider{GivenName: "Jane", MiddleName: "Q", FamilyName: "Doe"}
	assert.Equal(t, "Jane Q Doe", p.FullName())

	p = &Provider{GivenName: "Jane", FamilyName: "Doe"}
	assert.Equal(t, "Jane Doe", p.FullName())

	p = &Provider{FamilyName: "Doe"}
	assert.Equal(t, "Doe", p.FullName())
}

func TestHomeLicensesAndPrivilegesSplit(t *testing.T) {
	p := &Provider{
		Licenses: []*licensing.License{
			homeLicense("lic-1", ltypes.StatusActive, date(2020, time.July, 1)),
			privilege("prv-1", "ne", "aud"),
			homeLicense("lic-2", ltypes.StatusInactive, date(2018, time.July, 1)),
		},
	}

	homes := p.HomeLicenses()
	require.Len(t, homes, 2)
	assert.Equal(t, "lic-1", homes[0].ID)

	privs := p.Privileges()
	require.Len(t, privs, 1)
	assert.Equal(t, "prv-1", privs[0].ID)
}

func TestPrivilegeFor(t *testing.T) {
	p := &Provider{
		Licenses: []*licensing.License{
			privilege("prv-1", "ne", "aud"),
			privilege("prv-2", "ky", "aud"),
		},
	}

	found := p.PrivilegeFor("ky", "aud")
	require.NotNil(t, found)
	assert.Equal(t, "prv-2", found.ID)

	assert.Nil(t, p.PrivilegeFor("tx", "aud"))
	assert.Nil(t, p.PrivilegeFor("ky", "slp"))
}

func TestBestHomeLicense_ActiveBeatsNewerInactive(t *testing.T) {
	p := &Provider{
		Licenses: []*licensing.License{
			homeLicense("old-active", ltypes.StatusActive, date(2015, time.July, 1)),
			homeLicense("new-inactive", ltypes.StatusInactive, date(2024, time.July, 1)),
		},
	}

	best := p.BestHomeLicense()
	require.NotNil(t, best)
	assert.Equal(t, "old-active", best.ID)
}

func TestBestHomeLicense_MostRecentlyIssuedWins(t *testing.T) {
	p := &Provider{
		Licenses: []*licensing.License{
			homeLicense("older", ltypes.StatusActive, date(2018, time.July, 1)),
			homeLicense("newer", ltypes.StatusActive, date(2022, time.July, 1)),
		},
	}

	best := p.BestHomeLicense()
	require.NotNil(t, best)
	assert.Equal(t, "newer", best.ID)
}

func TestBestHomeLicense_IgnoresPrivileges(t *testing.T) {
	p := &Provider{
		Licenses: []*licensing.License{
			privilege("prv-1", "ne", "aud"),
		},
	}
	assert.Nil(t, p.BestHomeLicense())
}

func TestStatus_ActiveWithOneCleanLicense(t *testing.T) {
	asOf := date(2026, time.March, 15)
	clean := homeLicense("lic-1", ltypes.StatusActive, date(2020, time.July, 1))
	clean.ExpireDate = date(2027, time.July, 1)

	p := &Provider{Licenses: []*licensing.License{clean}}
	assert.Equal(t, LicenseeActive, p.Status(asOf))
}

func TestStatus_InactiveWhenAllLicensesDisqualified(t *testing.T) {
	asOf := date(2026, time.March, 15)

	expired := homeLicense("lic-1", ltypes.StatusActive, date(2020, time.July, 1))
	expired.ExpireDate = date(2024, time.July, 1)

	encumbered := privilege("prv-1", "ne", "aud")
	encumbered.AdverseActions = []licensing.AdverseAction{
		{StartDate: date(2025, time.January, 1)},
	}

	deactivated := privilege("prv-2", "ky", "aud")
	deactivated.History = []licensing.HistoryItem{
		{UpdateType: ltypes.UpdateDeactivation, DateOfUpdate: date(2025, time.March, 1)},
	}

	p := &Provider{Licenses: []*licensing.License{expired, encumbered, deactivated}}
	assert.Equal(t, LicenseeInactive, p.Status(asOf))
}

func TestStatus_NoLicenses(t *testing.T) {
	p := &Provider{}
	assert.Equal(t, LicenseeInactive, p.Status(date(2026, time.March, 15)))
}

func TestDisplayName(t *testing.T) {
	p := &Provider{
		GivenName:  "Jane",
		FamilyName: "Doe",
		Licenses: []*licensing.License{
			homeLicense("lic-1", ltypes.StatusActive, date(2020, time.July, 1)),
		},
	}
	assert.Equal(t, "Jane Doe (Ohio - audiologist)", p.DisplayName(licensing.DefaultResolver()))

	p.Licenses = nil
	assert.Equal(t, "Jane Doe", p.DisplayName(licensing.DefaultResolver()))
}
