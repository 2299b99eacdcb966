package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to DealStatus
		allowed  bool
	}{
		{DealPending, DealInProgress, true},
		{DealPending, DealCancelled, true},
		{DealPending, DealCompleted, false},
		{DealInProgress, DealCompleted, true},
		{DealInProgress, DealCancelled, true},
		{DealInProgress, DealPending, false},
		{DealCompleted, DealCancelled, false},
		{DealCancelled, DealPending, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, DealCompleted.IsTerminal())
	assert.True(t, DealCancelled.IsTerminal())
	assert.False(t, DealPending.IsTerminal())
	assert.False(t, DealStatus("accepted").Valid())
}

func TestDealCounterParties(t *testing.T) {
	deal := &Deal{Buyer: UserRef{ID: "b"}}

	assert.Empty(t, deal.CounterParties("b"))
	assert.Equal(t, []string{"b"}, deal.CounterParties("s"))

	deal.AssignSeller(&UserRef{ID: "s"})
	assert.Equal(t, []string{"s"}, deal.CounterParties("b"))
	assert.Equal(t, []string{"b"}, deal.CounterParties("s"))
	assert.Equal(t, []string{"b", "s"}, deal.CounterParties("admin"))
	assert.Equal(t, []string{"b", "s"}, deal.Participants)
}

func TestDealAppendPriceAndClone(t *testing.T) {
	deal := &Deal{Buyer: UserRef{ID: "b"}}
	deal.AppendPrice(100, "b", time.Now())

	clone := deal.Clone()
	clone.AppendPrice(90, "s", time.Now())

	assert.Equal(t, float64(100), deal.Price)
	assert.Len(t, deal.PriceHistory, 1)
	assert.Equal(t, float64(90), clone.Price)
	assert.Len(t, clone.PriceHistory, 2)
	assert.Equal(t, "s", clone.PriceHistory[1].UserID)
}

func TestWireFieldsAreCamelCase(t *testing.T) {
	deal := &Deal{ID: "d1", InitiatedBy: "b1", Buyer: UserRef{ID: "b1"}}
	deal.AppendPrice(100, "b1", time.Now())

	for _, v := range []interface{}{
		deal,
		&Message{ID: "m1", DealID: "d1", SenderID: "b1"},
		&Notification{ID: "n1", UserID: "b1", DealID: "d1"},
	} {
		raw, err := json.Marshal(v)
		require.NoError(t, err)

		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &fields))
		for key := range fields {
			assert.NotContains(t, key, "_", "%T field %s", v, key)
		}
	}

	raw, err := json.Marshal(deal)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"priceHistory":[{"price":100,"userId":"b1"`)
	assert.Contains(t, string(raw), `"initiatedBy":"b1"`)
}
