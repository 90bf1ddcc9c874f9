// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Plan is a subscription plan offered on the pricing section.
type Plan struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Amount        string `yaml:"amount"`
	Currency      string `yaml:"currency"`
	Interval      string `yaml:"interval"`
	IntervalCount int64  `yaml:"interval-count"`
}

// DefaultPlan is the flat monthly plan used when none is configured.
var DefaultPlan = Plan{
	ID:            "pro",
	Name:          "Pro subscription",
	Title:         "FlashGen Plan",
	Description:   "Get all features for just $1/month.",
	Amount:        "1.00",
	Currency:      "usd",
	Interval:      "month",
	IntervalCount: 1,
}

// UnitAmount returns the plan price in the smallest currency unit.
func (plan Plan) UnitAmount() (int64, error) {
	amount, err := decimal.NewFromString(plan.Amount)
	if err != nil {
		return 0, Error.New("invalid amount %q for plan %q: %v", plan.Amount, plan.ID, err)
	}
	return formatAmountForStripe(amount), nil
}

// formatAmountForStripe converts a decimal amount to cents.
func formatAmountForStripe(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.New(100, 0)).Round(0).IntPart()
}

// Price returns the human readable price, e.g. "$1/month".
func (plan Plan) Price() string {
	amount, err := decimal.NewFromString(plan.Amount)
	if err != nil {
		return plan.Amount
	}

	var price string
	if strings.EqualFold(plan.Currency, "usd") {
		price = "$" + amount.StringFixed(2)
		price = strings.TrimSuffix(price, ".00")
	} else {
		price = amount.StringFixed(2) + " " + strings.ToUpper(plan.Currency)
	}

	if plan.IntervalCount > 1 {
		return fmt.Sprintf("%s every %d %ss", price, plan.IntervalCount, plan.Interval)
	}
	return price + "/" + plan.Interval
}

// Validate checks that the plan can be sent to the payment provider.
func (plan Plan) Validate() error {
	if plan.ID == "" {
		return Error.New("plan id is required")
	}
	if plan.Name == "" {
		return Error.New("plan %q: name is required", plan.ID)
	}
	amount, err := plan.UnitAmount()
	if err != nil {
		return err
	}
	if amount <= 0 {
		return Error.New("plan %q: amount must be positive", plan.ID)
	}
	if len(plan.Currency) != 3 {
		return Error.New("plan %q: invalid currency %q", plan.ID, plan.Currency)
	}
	switch plan.Interval {
	case "day", "week", "month", "year":
	default:
		return Error.New("plan %q: invalid interval %q", plan.ID, plan.Interval)
	}
	if plan.IntervalCount < 1 {
		return Error.New("plan %q: interval-count must be at least 1", plan.ID)
	}
	return nil
}

// Plans is a YAML list of plans usable as a flag value.
type Plans struct {
	List []Plan
}

// Ensure that Plans implements pflag.Value.
var _ pflag.Value = (*Plans)(nil)

// Type returns the type of the pflag.Value.
func (Plans) Type() string { return "payments.Plans" }

// String returns the YAML representation of the plans.
func (p *Plans) String() string {
	if p == nil || len(p.List) == 0 {
		return ""
	}
	out, err := yaml.Marshal(p.List)
	if err != nil {
		return ""
	}
	return string(out)
}

// Set parses a YAML list of plans.
func (p *Plans) Set(s string) error {
	if strings.TrimSpace(s) == "" {
		p.List = nil
		return nil
	}

	var list []Plan
	if err := yaml.Unmarshal([]byte(s), &list); err != nil {
		return Error.New("invalid plans YAML: %v", err)
	}

	seen := make(map[string]bool, len(list))
	for i := range list {
		if list[i].Currency == "" {
			list[i].Currency = "usd"
		}
		if list[i].IntervalCount == 0 {
			list[i].IntervalCount = 1
		}
		if err := list[i].Validate(); err != nil {
			return err
		}
		if seen[list[i].ID] {
			return Error.New("duplicate plan id %q", list[i].ID)
		}
		seen[list[i].ID] = true
	}

	p.List = list
	return nil
}

// All returns the configured plans, or the default plan when none are set.
func (p Plans) All() []Plan {
	if len(p.List) == 0 {
		return []Plan{DefaultPlan}
	}
	return p.List
}

// Get returns the plan with the given id. An empty id selects the first plan.
func (p Plans) Get(id string) (Plan, bool) {
	all := p.All()
	if id == "" {
		return all[0], true
	}
	for _, plan := range all {
		if plan.ID == id {
			return plan, true
		}
	}
	return Plan{}, false
}
