package nameseed

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/web3infra/nameseed/schema"
)

func testOracle(t *testing.T) *UsdOracle {
	o, err := NewUsdOracle(
		[]string{"640", "640", "640", "160", "5"},
		"100000000",
		86400,
		FixedRate(decimal.NewFromInt(2000)),
	)
	assert.NoError(t, err)
	return o
}

func TestUsdOracleBasePricing(t *testing.T) {
	o := testOracle(t)

	// $5/yr at $2000/eth for one year is exactly 2.5e15 wei
	q, err := o.Quote("alice", 0, yearSecs, t0)
	assert.NoError(t, err)
	assert.Equal(t, "2500000000000000", q.Base.String())
	assert.Equal(t, "0", q.Premium.String())

	// shorter labels cost more
	q, err = o.Quote("abc", 0, yearSecs, t0)
	assert.NoError(t, err)
	assert.Equal(t, "320000000000000000", q.Base.String())

	q, err = o.Quote("abcd", 0, yearSecs, t0)
	assert.NoError(t, err)
	assert.Equal(t, "80000000000000000", q.Base.String())

	// labels past the table reuse the last entry
	q, err = o.Quote("averyveryverylongname", 0, yearSecs, t0)
	assert.NoError(t, err)
	assert.Equal(t, "2500000000000000", q.Base.String())

	// base scales linearly with duration
	q, err = o.Quote("alice", 0, 2*yearSecs, t0)
	assert.NoError(t, err)
	assert.Equal(t, "5000000000000000", q.Base.String())
}

func TestUsdOraclePremiumDecay(t *testing.T) {
	o := testOracle(t)
	grace := int64(schema.GracePeriod / time.Second)
	expires := t0
	graceEnd := expires + grace

	// no premium while registered or still inside grace
	assert.True(t, o.premiumUsd(expires, expires-1).IsZero())
	assert.True(t, o.premiumUsd(expires, graceEnd-1).IsZero())

	// full premium the instant grace ends
	assert.Equal(t, "100000000", o.premiumUsd(expires, graceEnd).String())

	// linear interpolation halfway through the first period
	assert.Equal(t, "75000000", o.premiumUsd(expires, graceEnd+43200).String())

	// one full halving
	assert.Equal(t, "50000000", o.premiumUsd(expires, graceEnd+86400).String())
	assert.Equal(t, "25000000", o.premiumUsd(expires, graceEnd+2*86400).String())

	// decays to zero eventually
	assert.True(t, o.premiumUsd(expires, graceEnd+50*86400).IsZero())

	// a name that never existed carries no premium
	assert.True(t, o.premiumUsd(0, t0).IsZero())
}

func TestUsdOraclePremiumInQuote(t *testing.T) {
	o := testOracle(t)
	grace := int64(schema.GracePeriod / time.Second)
	expires := t0

	q, err := o.Quote("alice", expires, yearSecs, expires+grace)
	assert.NoError(t, err)
	// $100M premium at $2000/eth
	assert.Equal(t, "50000000000000000000000", q.Premium.String())
	assert.Equal(t, "2500000000000000", q.Base.String())
}

func TestUsdOracleBadInputs(t *testing.T) {
	_, err := NewUsdOracle(nil, "1", 86400, FixedRate(decimal.NewFromInt(2000)))
	assert.Error(t, err)

	_, err = NewUsdOracle([]string{"5"}, "1", 0, FixedRate(decimal.NewFromInt(2000)))
	assert.Error(t, err)

	_, err = NewUsdOracle([]string{"not-a-number"}, "1", 86400, FixedRate(decimal.NewFromInt(2000)))
	assert.Error(t, err)

	// a zero rate must fail the quote, not divide by zero
	o, err := NewUsdOracle([]string{"5"}, "1", 86400, FixedRate(decimal.Zero))
	assert.NoError(t, err)
	_, err = o.Quote("alice", 0, yearSecs, t0)
	assert.Error(t, err)
}

func TestUsdOracleDescribe(t *testing.T) {
	o := testOracle(t)
	assert.Equal(t, "usd-oracle(yearly=640,640,640,160,5,premium=100000000/86400s)", o.Describe())
}
