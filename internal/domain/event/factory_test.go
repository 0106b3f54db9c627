package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockhub/internal/domain/inventory"
)

func TestFactory_FromTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.FixedZone("CST", 8*3600))
	f := NewFactory(func() time.Time { return now })

	tr := &inventory.Transition{
		Type:     inventory.ChangeReserve,
		Quantity: 30,
		Before:   inventory.Record{SKU: "SKU-1", StoreID: "store-1", Quantity: 100, Version: 4, Active: true},
		After:    inventory.Record{SKU: "SKU-1", StoreID: "store-1", Name: "机械键盘", Quantity: 70, ReservedQuantity: 30, Version: 5, Active: true},
	}

	evt := f.FromTransition(tr)

	_, err := uuid.Parse(evt.EventID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", evt.SKU)
	assert.Equal(t, "store-1", evt.StoreID)
	assert.Equal(t, TypeReserve, evt.Type)
	assert.Equal(t, 100, evt.PreviousQuantity)
	assert.Equal(t, 70, evt.NewQuantity)
	assert.Equal(t, 30, evt.ReservedQuantity)
	assert.Equal(t, int64(5), evt.RecordVersion)
	assert.Equal(t, now.UTC(), evt.Timestamp)
	assert.Equal(t, "30", evt.Details["requestedQuantity"])
	assert.Equal(t, "store-1", evt.PartitionKey())

	assert.NotEqual(t, evt.EventID, f.FromTransition(tr).EventID, "每次变更的事件ID唯一")
}

func TestDomainEvent_WireFormat(t *testing.T) {
	evt := &DomainEvent{
		EventID: "e-1", SKU: "SKU-1", StoreID: "store-1", Type: TypeCommit,
		PreviousQuantity: 90, NewQuantity: 90, ReservedQuantity: 0, RecordVersion: 3,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := evt.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"eventId":"e-1","sku":"SKU-1","storeId":"store-1","type":"COMMIT",
		"previousQuantity":90,"newQuantity":90,"reservedQuantity":0,"recordVersion":3,
		"timestamp":"2026-03-01T10:00:00Z"
	}`, string(data))

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, evt, decoded)
}
