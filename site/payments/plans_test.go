// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package payments_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashgen.io/flashgen/site/payments"
)

func TestDefaultPlan(t *testing.T) {
	var plans payments.Plans

	all := plans.All()
	require.Len(t, all, 1)
	require.Equal(t, payments.DefaultPlan, all[0])

	plan, ok := plans.Get("")
	require.True(t, ok)
	require.Equal(t, "pro", plan.ID)

	amount, err := plan.UnitAmount()
	require.NoError(t, err)
	require.EqualValues(t, 100, amount)
	require.Equal(t, "$1/month", plan.Price())
	require.NoError(t, plan.Validate())

	_, ok = plans.Get("enterprise")
	require.False(t, ok)
}

func TestPlansSet(t *testing.T) {
	var plans payments.Plans
	require.NoError(t, plans.Set(`
- id: basic
  name: Basic subscription
  amount: "2.5"
  interval: month
- id: yearly
  name: Yearly subscription
  amount: "10.00"
  currency: eur
  interval: year
  interval-count: 2
`))

	require.Len(t, plans.All(), 2)

	basic, ok := plans.Get("basic")
	require.True(t, ok)
	require.Equal(t, "usd", basic.Currency)
	require.EqualValues(t, 1, basic.IntervalCount)
	amount, err := basic.UnitAmount()
	require.NoError(t, err)
	require.EqualValues(t, 250, amount)
	require.Equal(t, "$2.50/month", basic.Price())

	first, ok := plans.Get("")
	require.True(t, ok)
	require.Equal(t, "basic", first.ID)

	yearly, ok := plans.Get("yearly")
	require.True(t, ok)
	require.Equal(t, "10.00 EUR every 2 years", yearly.Price())

	require.Contains(t, plans.String(), "yearly")
	require.Equal(t, "payments.Plans", plans.Type())

	require.NoError(t, plans.Set(""))
	require.Equal(t, payments.DefaultPlan, plans.All()[0])
}

func TestPlansSetInvalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		yaml string
	}{
		{name: "not yaml", yaml: "- id: [broken"},
		{name: "missing id", yaml: "- name: x\n  amount: '1'\n  interval: month"},
		{name: "zero amount", yaml: "- id: a\n  name: x\n  amount: '0'\n  interval: month"},
		{name: "bad amount", yaml: "- id: a\n  name: x\n  amount: one\n  interval: month"},
		{name: "bad interval", yaml: "- id: a\n  name: x\n  amount: '1'\n  interval: decade"},
		{name: "bad currency", yaml: "- id: a\n  name: x\n  amount: '1'\n  currency: dollars\n  interval: month"},
		{name: "duplicate", yaml: "- id: a\n  name: x\n  amount: '1'\n  interval: month\n- id: a\n  name: y\n  amount: '2'\n  interval: month"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var plans payments.Plans
			err := plans.Set(tt.yaml)
			require.Error(t, err)
			require.True(t, payments.Error.Has(err))
		})
	}
}
