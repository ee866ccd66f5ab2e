package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402labs/x402gate/internal/model"
)

func register(h *Hub, filter string) *client {
	c := &client{send: make(chan Event, clientQueueSize), orderID: filter}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func drain(t *testing.T, ch chan Event, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestHubFanOutPreservesPublishOrder(t *testing.T) {
	h := NewHub()
	h.Start()
	defer h.cancel()

	sub := register(h, "")

	h.PublishStatus("order-a", model.SettlementStatusPending)
	h.PublishStep("order-a", model.SettlementStep{StepNumber: 1})
	h.PublishStep("order-a", model.SettlementStep{StepNumber: 2})
	h.PublishStatus("order-a", model.SettlementStatusConfirmed)

	events := drain(t, sub.send, 4)

	assert.Equal(t, "status", events[0].Type)
	assert.Equal(t, model.SettlementStatusPending, events[0].Status)

	require.NotNil(t, events[1].Step)
	assert.Equal(t, 1, events[1].Step.StepNumber)
	require.NotNil(t, events[2].Step)
	assert.Equal(t, 2, events[2].Step.StepNumber)

	assert.Equal(t, "status", events[3].Type)
	assert.Equal(t, model.SettlementStatusConfirmed, events[3].Status)
}

func TestHubOrderFilter(t *testing.T) {
	h := NewHub()
	h.Start()
	defer h.cancel()

	onlyA := register(h, "order-a")
	all := register(h, "")

	h.PublishStep("order-a", model.SettlementStep{StepNumber: 1})
	h.PublishStep("order-b", model.SettlementStep{StepNumber: 1})
	h.PublishStatus("order-a", model.SettlementStatusConfirmed)

	// the unfiltered subscriber sees all three
	events := drain(t, all.send, 3)
	assert.Equal(t, "order-a", events[0].OrderID)
	assert.Equal(t, "order-b", events[1].OrderID)

	// the filtered subscriber only sees order-a
	filtered := drain(t, onlyA.send, 2)
	for _, ev := range filtered {
		assert.Equal(t, "order-a", ev.OrderID)
	}
	select {
	case ev := <-onlyA.send:
		t.Fatalf("unexpected event for order %s", ev.OrderID)
	default:
	}
}
