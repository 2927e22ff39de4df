package licensing

// NameResolver supplies the display names the entity does not carry itself.
// It replaces the original system's ambient translation lookup: callers
// inject a resolver instead of the entity reading process-wide state.
type NameResolver interface {
	// JurisdictionName resolves a postal abbreviation to a state name.
	JurisdictionName(abbreviation string) (string, bool)

	// LicenseTypeName resolves a license-type abbreviation to its full name.
	LicenseTypeName(abbreviation string) (string, bool)

	// LicenseTypeAbbreviation resolves a full license-type name to its
	// abbreviation.
	LicenseTypeAbbreviation(name string) (string, bool)
}

// TableResolver is the map-backed NameResolver used in production, populated
// from the compact's jurisdiction and license-type tables.
type TableResolver struct {
	Jurisdictions map[string]string // abbreviation → name
	LicenseTypes  map[string]string // abbreviation → full name
	abbreviations map[string]string // lazily inverted LicenseTypes
}

// NewTableResolver builds a TableResolver from explicit tables.
func NewTableResolver(jurisdictions, licenseTypes map[string]string) *TableResolver {
	abbrevs := make(map[string]string, len(licenseTypes))
	for abbrev, name := range licenseTypes {
		abbrevs[name] = abbrev
	}
	return &TableResolver{
		Jurisdictions: jurisdictions,
		LicenseTypes:  licenseTypes,
		abbreviations: abbrevs,
	}
}

func (r *TableResolver) JurisdictionName(abbreviation string) (string, bool) {
	name, ok := r.Jurisdictions[abbreviation]
	return name, ok
}

func (r *TableResolver) LicenseTypeName(abbreviation string) (string, bool) {
	name, ok := r.LicenseTypes[abbreviation]
	return name, ok
}

func (r *TableResolver) LicenseTypeAbbreviation(name string) (string, bool) {
	abbrev, ok := r.abbreviations[name]
	return abbrev, ok
}

// DefaultResolver returns a resolver seeded with the member jurisdictions and
// the license types of the compacts the platform currently serves.
func DefaultResolver() *TableResolver {
	return NewTableResolver(defaultJurisdictions, defaultLicenseTypes)
}

var defaultJurisdictions = map[string]string{
	"al": "Alabama",
	"ak": "Alaska",
	"az": "Arizona",
	"ar": "Arkansas",
	"co": "Colorado",
	"ct": "Connecticut",
	"fl": "Florida",
	"ga": "Georgia",
	"ia": "Iowa",
	"ky": "Kentucky",
	"la": "Louisiana",
	"me": "Maine",
	"mn": "Minnesota",
	"ms": "Mississippi",
	"mo": "Missouri",
	"ne": "Nebraska",
	"nh": "New Hampshire",
	"nd": "North Dakota",
	"oh": "Ohio",
	"ok": "Oklahoma",
	"tn": "Tennessee",
	"tx": "Texas",
	"ut": "Utah",
	"va": "Virginia",
	"wi": "Wisconsin",
	"wy": "Wyoming",
}

var defaultLicenseTypes = map[string]string{
	"aud": "audiologist",
	"slp": "speech-language pathologist",
	"ot":  "occupational therapist",
	"ota": "occupational therapy assistant",
	"lpc": "licensed professional counselor",
}
