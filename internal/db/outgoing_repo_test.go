package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vitalmsg/internal/types"
)

func outgoingScanFn(id, msgID, jurisdiction string, created time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*[]byte) = []byte(`{}`)
		*dest[2].(*string) = msgID
		*dest[3].(*string) = string(types.KindAcknowledgement)
		*dest[4].(*string) = jurisdiction
		*dest[5].(*string) = "000042"
		*dest[6].(*int) = 2025
		*dest[7].(*string) = "death"
		*dest[8].(*time.Time) = created
		*dest[9].(**time.Time) = nil
		*dest[10].(**time.Time) = nil
		return nil
	}
}

func TestOutgoingRepository_Insert_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOutgoingRepository(db)

	now := time.Now().UTC()
	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*time.Time) = now
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(row)

	msg := &types.OutgoingMessage{
		ID:           "0c7a3f66-95a1-4c3c-8d38-2f1f6a3b9a10",
		Payload:      []byte(`{"message_id":"ack-1"}`),
		MessageID:    "ack-1",
		Kind:         types.KindAcknowledgement,
		Jurisdiction: "MA",
	}
	err := repo.Insert(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, now, msg.CreatedAt)
}

func TestOutgoingRepository_ListUnretrieved_Jurisdiction(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOutgoingRepository(db)

	now := time.Now().UTC()
	rows := &mockRows{rows: []func(dest ...any) error{
		outgoingScanFn("id-1", "ack-1", "MA", now),
		outgoingScanFn("id-2", "ack-2", "MA", now.Add(time.Second)),
	}}
	var queryArgs []any
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { queryArgs = args.Get(2).([]any) }).
		Return(rows, nil)

	got, err := repo.ListUnretrieved(context.Background(), "MA", types.ConsumerJurisdiction, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ack-1", got[0].MessageID)
	assert.Equal(t, "ack-2", got[1].MessageID)
	require.Len(t, queryArgs, 2)
	assert.Equal(t, "MA", queryArgs[0])
}

func TestOutgoingRepository_ListUnretrieved_SteveSeesAllJurisdictions(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOutgoingRepository(db)

	now := time.Now().UTC()
	rows := &mockRows{rows: []func(dest ...any) error{
		outgoingScanFn("id-1", "ack-1", "MA", now),
		outgoingScanFn("id-2", "ack-2", "VT", now.Add(time.Second)),
	}}
	var queryArgs []any
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { queryArgs = args.Get(2).([]any) }).
		Return(rows, nil)

	got, err := repo.ListUnretrieved(context.Background(), "", types.ConsumerSteve, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// The STEVE query is not jurisdiction-scoped; only the limit is bound.
	require.Len(t, queryArgs, 1)
	assert.Equal(t, 50, queryArgs[0])
}

func TestOutgoingRepository_MarkRetrieved_NoIDsIsNoop(t *testing.T) {
	db := new(mockDBTX)
	repo := NewOutgoingRepository(db)

	err := repo.MarkRetrieved(context.Background(), nil, types.ConsumerJurisdiction, time.Now())
	require.NoError(t, err)
	db.AssertNotCalled(t, "Exec")
}

func TestOutgoingRepository_MarkRetrieved_UsesConsumerColumn(t *testing.T) {
	tests := []struct {
		name     string
		consumer types.FeedConsumer
		column   string
	}{
		{name: "jurisdiction marker", consumer: types.ConsumerJurisdiction, column: "retrieved_at"},
		{name: "steve marker", consumer: types.ConsumerSteve, column: "steve_retrieved_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewOutgoingRepository(db)

			var gotSQL string
			db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
				Run(func(args mock.Arguments) { gotSQL = args.Get(1).(string) }).
				Return(pgconn.NewCommandTag("UPDATE 1"), nil)

			err := repo.MarkRetrieved(context.Background(), []string{"id-1"}, tt.consumer, time.Now())
			require.NoError(t, err)
			assert.Contains(t, gotSQL, tt.column+" = $1")
			assert.Contains(t, gotSQL, tt.column+" IS NULL")
		})
	}
}
