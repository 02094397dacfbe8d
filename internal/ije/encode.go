package ije

import (
	"strconv"
	"strings"
	"time"

	"vitalmsg/internal/types"
)

// RecordLength is the fixed length of one IJE record in characters.
const RecordLength = 5000

// field describes one slot in the IJE layout. Start is the 1-based offset
// from the format specification; numeric fields are right-justified and
// zero-padded, alpha fields left-justified and space-padded.
type field struct {
	name    string
	start   int
	length  int
	numeric bool
}

// Layout of the fields this encoder populates. Offsets follow the IJE
// mortality format; unpopulated regions of the record remain spaces.
var layout = []field{
	{name: "DOD_YR", start: 1, length: 4, numeric: true},
	{name: "DSTATE", start: 5, length: 2},
	{name: "FILENO", start: 7, length: 6, numeric: true},
	{name: "VOID", start: 13, length: 1},
	{name: "AUXNO", start: 14, length: 12},
	{name: "MFILED", start: 26, length: 1},
	{name: "GNAME", start: 27, length: 50},
	{name: "MNAME", start: 77, length: 1},
	{name: "LNAME", start: 78, length: 50},
	{name: "SUFF", start: 128, length: 10},
	{name: "FLNAME", start: 139, length: 50},
	{name: "SEX", start: 189, length: 1},
	{name: "SSN", start: 190, length: 9},
	{name: "AGE", start: 200, length: 3, numeric: true},
	{name: "DOB_YR", start: 204, length: 4, numeric: true},
	{name: "DOB_MO", start: 208, length: 2, numeric: true},
	{name: "DOB_DY", start: 210, length: 2, numeric: true},
	{name: "DOD_MO", start: 224, length: 2, numeric: true},
	{name: "DOD_DY", start: 226, length: 2, numeric: true},
	{name: "MARITAL", start: 229, length: 1},
	{name: "MANNER", start: 701, length: 1},
	{name: "ACME_UC", start: 704, length: 5},
}

var fieldIndex = func() map[string]field {
	idx := make(map[string]field, len(layout))
	for _, f := range layout {
		idx[f.name] = f
	}
	return idx
}()

// Encode renders the envelope's death record as one fixed-width IJE record.
// The envelope must carry a death record and a two-letter jurisdiction;
// anything else is a conversion failure.
func (c *Codec) Encode(env *Envelope) (string, error) {
	if env.DeathRecord == nil {
		return "", types.NewAppError(types.ErrCodeConversionFailed, "message carries no death record", nil)
	}
	if len(env.Jurisdiction) != 2 {
		return "", types.NewAppError(types.ErrCodeConversionFailed, "invalid jurisdiction for IJE record", nil)
	}

	rec := env.DeathRecord
	buf := make([]byte, RecordLength)
	for i := range buf {
		buf[i] = ' '
	}

	dodYear, dodMonth, dodDay := splitDate(rec.DateOfDeath)
	if dodYear == 0 {
		dodYear = env.EventYear
	}
	if dodYear == 0 {
		return "", types.NewAppError(types.ErrCodeConversionFailed, "death record has no usable death year", nil)
	}
	dobYear, dobMonth, dobDay := splitDate(rec.DateOfBirth)

	place(buf, "DOD_YR", strconv.Itoa(dodYear))
	place(buf, "DSTATE", strings.ToUpper(env.Jurisdiction))
	place(buf, "FILENO", digitsOnly(env.CertNumber))
	place(buf, "VOID", "0")
	place(buf, "AUXNO", env.StateAuxiliaryID)
	place(buf, "MFILED", "0")
	place(buf, "GNAME", rec.FirstName)
	place(buf, "MNAME", rec.MiddleInitial)
	place(buf, "LNAME", rec.LastName)
	place(buf, "SUFF", rec.Suffix)
	place(buf, "FLNAME", rec.FatherLastName)
	place(buf, "SEX", sexCode(rec.Sex))
	place(buf, "SSN", digitsOnly(rec.SSN))
	if rec.AgeYears > 0 {
		place(buf, "AGE", strconv.Itoa(rec.AgeYears))
	}
	if dobYear > 0 {
		place(buf, "DOB_YR", strconv.Itoa(dobYear))
		place(buf, "DOB_MO", strconv.Itoa(dobMonth))
		place(buf, "DOB_DY", strconv.Itoa(dobDay))
	}
	if dodMonth > 0 {
		place(buf, "DOD_MO", strconv.Itoa(dodMonth))
		place(buf, "DOD_DY", strconv.Itoa(dodDay))
	}
	place(buf, "MARITAL", rec.MaritalStatus)
	place(buf, "MANNER", rec.MannerOfDeath)
	place(buf, "ACME_UC", strings.ToUpper(rec.UnderlyingCause))

	return string(buf), nil
}

// place writes value into the named slot, truncating overlong values.
// Numeric fields are right-justified and zero-padded, alpha fields
// left-justified and space-padded (the slot is already spaces).
func place(buf []byte, name, value string) {
	f, ok := fieldIndex[name]
	if !ok || value == "" {
		return
	}
	if len(value) > f.length {
		value = value[:f.length]
	}
	start := f.start - 1
	if f.numeric {
		start += f.length - len(value)
		for i := f.start - 1; i < start; i++ {
			buf[i] = '0'
		}
	}
	copy(buf[start:], value)
}

// splitDate parses an ISO "2006-01-02" date into its components, returning
// zeros when the value is empty or malformed.
func splitDate(iso string) (year, month, day int) {
	if iso == "" {
		return 0, 0, 0
	}
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return 0, 0, 0
	}
	return t.Year(), int(t.Month()), t.Day()
}

// digitsOnly strips non-digit characters (hyphenated SSNs, formatted file
// numbers).
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sexCode normalizes the sex field to the single-character IJE coding,
// defaulting to U (unknown).
func sexCode(s string) string {
	switch strings.ToUpper(s) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	default:
		return "U"
	}
}
