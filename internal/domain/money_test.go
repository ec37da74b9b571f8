package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_ToDecimal(t *testing.T) {
	m := NewMoney(10_500_000, "ETH") // 10.50 ETH
	d := m.ToDecimal()
	assert.Equal(t, "10.5", d.String())
}

func TestFromDecimal(t *testing.T) {
	d := decimal.NewFromFloat(10.50)
	units := FromDecimal(d)
	assert.Equal(t, int64(10_500_000), units)
}

func TestMoney_String(t *testing.T) {
	m := NewMoney(1_100_000, "DAI")
	assert.Equal(t, "1.10 DAI", m.String())
}
