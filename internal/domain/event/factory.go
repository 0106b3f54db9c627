package event

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/stockhub/internal/domain/inventory"
)

// Factory 由状态变更构造领域事件
type Factory struct {
	now   func() time.Time
	newID func() string
}

// NewFactory 创建事件工厂
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{
		now:   now,
		newID: func() string { return uuid.NewString() },
	}
}

// FromTransition 一次状态变更对应一条事件
func (f *Factory) FromTransition(tr *inventory.Transition) *DomainEvent {
	details := map[string]string{
		"requestedQuantity": strconv.Itoa(tr.Quantity),
		"previousReserved":  strconv.Itoa(tr.Before.ReservedQuantity),
	}
	if tr.After.Name != "" {
		details["name"] = tr.After.Name
	}
	if !tr.After.Active {
		details["active"] = "false"
	}

	return &DomainEvent{
		EventID:          f.newID(),
		SKU:              tr.After.SKU,
		StoreID:          tr.After.StoreID,
		Type:             tr.Type,
		PreviousQuantity: tr.Before.Quantity,
		NewQuantity:      tr.After.Quantity,
		ReservedQuantity: tr.After.ReservedQuantity,
		RecordVersion:    tr.After.Version,
		Timestamp:        f.now().UTC(),
		Details:          details,
	}
}
