package events

import (
	"context"
	"errors"
	"testing"

	"dineflow/internal/logger"
	"dineflow/internal/models"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestMultiPublishesToAll(t *testing.T) {
	a := &recorder{err: errors.New("a failed")}
	b := &recorder{}

	err := Multi{a, b}.Publish(context.Background(), ForWaiterCall(WaiterCallCreated, &models.WaiterCall{TenantID: "t1"}))

	assert.EqualError(t, err, "a failed")
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Equal(t, "t1", b.got[0].TenantID)
}

func TestPublishQuietlySwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("down")}
	assert.NotPanics(t, func() {
		PublishQuietly(context.Background(), r, logger.Discard(), ForOrder(OrderUpdated, &models.Order{TenantID: "t"}))
		PublishQuietly(context.Background(), nil, logger.Discard(), Event{})
	})
	assert.Len(t, r.got, 1)
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
