package ije

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalmsg/internal/types"
)

func validEnvelope() *Envelope {
	return &Envelope{
		MessageID:        "urn:uuid:8d34cf5a",
		Kind:             types.KindSubmission,
		RecordID:         "2025MA000042",
		Timestamp:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		CertNumber:       "42",
		StateAuxiliaryID: "AUX-9",
		Jurisdiction:     "MA",
		EventYear:        2025,
		DeathRecord: &DeathRecord{
			FirstName:       "Fidelia",
			MiddleInitial:   "J",
			LastName:        "Alsup",
			Sex:             "F",
			SSN:             "478-42-9938",
			AgeYears:        63,
			DateOfBirth:     "1962-01-11",
			DateOfDeath:     "2025-02-27",
			MaritalStatus:   "M",
			MannerOfDeath:   "N",
			UnderlyingCause: "I25.1",
		},
	}
}

func TestDecode_Valid(t *testing.T) {
	payload := []byte(`{
		"message_id": "m1",
		"kind": "update",
		"record_id": "2025VT000017",
		"timestamp": "2025-03-01T12:00:00Z",
		"cert_number": "000017",
		"jurisdiction": "VT",
		"event_year": 2025,
		"death_record": {"first_name": "Silas", "last_name": "Garnett", "sex": "M"}
	}`)

	env, err := NewCodec().Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "m1", env.MessageID)
	assert.Equal(t, types.KindUpdate, env.Kind)
	assert.Equal(t, "2025VT000017", env.RecordID)
	require.NotNil(t, env.DeathRecord)
	assert.Equal(t, "Silas", env.DeathRecord.FirstName)
}

func TestDecode_MalformedJSONIsParseError(t *testing.T) {
	_, err := NewCodec().Decode([]byte(`{"message_id": "m1",`))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeDecodeParse, appErr.Code)
}

func TestDecode_MissingFieldsIsDecodeFailure(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing message_id", payload: `{"kind":"submission","timestamp":"2025-03-01T12:00:00Z"}`},
		{name: "unknown kind", payload: `{"message_id":"m1","kind":"greeting","timestamp":"2025-03-01T12:00:00Z"}`},
		{name: "outgoing-only kind", payload: `{"message_id":"m1","kind":"acknowledgement","timestamp":"2025-03-01T12:00:00Z"}`},
		{name: "missing timestamp", payload: `{"message_id":"m1","kind":"submission"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec().Decode([]byte(tt.payload))
			require.Error(t, err)

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeDecodeFailed, appErr.Code)
		})
	}
}

func TestEncode_FixedWidthLayout(t *testing.T) {
	content, err := NewCodec().Encode(validEnvelope())
	require.NoError(t, err)
	require.Len(t, content, RecordLength)

	// Offsets are 1-based in the layout; slice with start-1.
	assert.Equal(t, "2025", content[0:4], "DOD_YR")
	assert.Equal(t, "MA", content[4:6], "DSTATE")
	assert.Equal(t, "000042", content[6:12], "FILENO zero-padded")
	assert.Equal(t, "0", content[12:13], "VOID")
	assert.Equal(t, "AUX-9       ", content[13:25], "AUXNO left-justified")
	assert.Equal(t, "Fidelia", strings.TrimRight(content[26:76], " "), "GNAME")
	assert.Equal(t, "J", content[76:77], "MNAME")
	assert.Equal(t, "Alsup", strings.TrimRight(content[77:127], " "), "LNAME")
	assert.Equal(t, "F", content[188:189], "SEX")
	assert.Equal(t, "478429938", content[189:198], "SSN digits only")
	assert.Equal(t, "063", content[199:202], "AGE zero-padded")
	assert.Equal(t, "1962", content[203:207], "DOB_YR")
	assert.Equal(t, "01", content[207:209], "DOB_MO")
	assert.Equal(t, "11", content[209:211], "DOB_DY")
	assert.Equal(t, "02", content[223:225], "DOD_MO")
	assert.Equal(t, "27", content[225:227], "DOD_DY")
	assert.Equal(t, "M", content[228:229], "MARITAL")
	assert.Equal(t, "N", content[700:701], "MANNER")
	assert.Equal(t, "I25.1", content[703:708], "ACME_UC")
}

func TestEncode_DeathYearFallsBackToEventYear(t *testing.T) {
	env := validEnvelope()
	env.DeathRecord.DateOfDeath = ""
	env.EventYear = 2024

	content, err := NewCodec().Encode(env)
	require.NoError(t, err)
	assert.Equal(t, "2024", content[0:4])
	// No date parts without a full date.
	assert.Equal(t, "  ", content[223:225], "DOD_MO stays blank")
}

func TestEncode_TruncatesOverlongValues(t *testing.T) {
	env := validEnvelope()
	env.DeathRecord.LastName = strings.Repeat("X", 80)

	content, err := NewCodec().Encode(env)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("X", 50), content[77:127])
	// The next slot must not be overwritten.
	assert.Equal(t, " ", content[127:128])
}

func TestEncode_ConversionFailures(t *testing.T) {
	t.Run("no death record", func(t *testing.T) {
		env := validEnvelope()
		env.DeathRecord = nil

		_, err := NewCodec().Encode(env)
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeConversionFailed, appErr.Code)
	})

	t.Run("no usable death year", func(t *testing.T) {
		env := validEnvelope()
		env.DeathRecord.DateOfDeath = ""
		env.EventYear = 0

		_, err := NewCodec().Encode(env)
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeConversionFailed, appErr.Code)
	})

	t.Run("bad jurisdiction", func(t *testing.T) {
		env := validEnvelope()
		env.Jurisdiction = "MASS"

		_, err := NewCodec().Encode(env)
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeConversionFailed, appErr.Code)
	})
}
