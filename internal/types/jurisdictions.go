package types

// jurisdictionCodes is the set of two-letter codes accepted on the ingestion
// boundary: the 50 states, DC, the reporting territories, and New York City,
// which reports separately from New York State under the code "YC".
var jurisdictionCodes = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "DC": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {},
	"IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {},
	"NV": {}, "NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {},
	"OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {},
	"TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {},
	"WI": {}, "WY": {},
	// City reporting area and territories.
	"YC": {}, "AS": {}, "GU": {}, "MP": {}, "PR": {}, "VI": {},
}

// ValidJurisdiction reports whether code is a recognized reporting
// jurisdiction.
func ValidJurisdiction(code string) bool {
	_, ok := jurisdictionCodes[code]
	return ok
}
