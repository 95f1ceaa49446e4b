package nameseed

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/web3infra/nameseed/schema"
)

const secondsPerYear = 365 * 24 * 60 * 60

var weiPerEth = decimal.New(1, 18)

// RateSource supplies the current USD price of one ETH. The production
// source is the Cache kept fresh by the updateEthRate job.
type RateSource interface {
	UsdPerEth() (decimal.Decimal, error)
}

// FixedRate is a static rate source, used in tests and as a cli fallback.
type FixedRate decimal.Decimal

func (f FixedRate) UsdPerEth() (decimal.Decimal, error) {
	return decimal.Decimal(f), nil
}

// UsdOracle prices names in USD per year by label length and converts to wei
// at quote time. Recently-lapsed names carry a premium that halves every
// premiumPeriod after the grace period ends, discouraging sniping of
// just-expired names.
type UsdOracle struct {
	usdPrices     []decimal.Decimal // index 0 = 1-char names; last entry covers longer labels
	premiumStart  decimal.Decimal   // USD at the instant the grace period ends
	premiumPeriod int64             // halving period, seconds
	grace         int64
	rate          RateSource
}

func NewUsdOracle(usdPrices []string, premiumStart string, premiumPeriod int64, rate RateSource) (*UsdOracle, error) {
	if len(usdPrices) == 0 || premiumPeriod <= 0 {
		return nil, ErrNotExist
	}
	prices := make([]decimal.Decimal, 0, len(usdPrices))
	for _, p := range usdPrices {
		d, err := decimal.NewFromString(p)
		if err != nil {
			return nil, err
		}
		prices = append(prices, d)
	}
	start, err := decimal.NewFromString(premiumStart)
	if err != nil {
		return nil, err
	}
	return &UsdOracle{
		usdPrices:     prices,
		premiumStart:  start,
		premiumPeriod: premiumPeriod,
		grace:         int64(schema.GracePeriod / time.Second),
		rate:          rate,
	}, nil
}

// DefaultUsdOracle is the stock pricing: $640/yr for 3-char names, $160/yr
// for 4-char, $5/yr for 5 and longer, $100M premium start halving daily.
func DefaultUsdOracle(rate RateSource) *UsdOracle {
	o, err := NewUsdOracle(
		[]string{"640", "640", "640", "160", "5"},
		"100000000",
		24*60*60,
		rate,
	)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *UsdOracle) yearlyUsd(label string) decimal.Decimal {
	n := len([]rune(label))
	if n < 1 {
		n = 1
	}
	if n > len(o.usdPrices) {
		n = len(o.usdPrices)
	}
	return o.usdPrices[n-1]
}

// premiumUsd decays the start premium by integer halvings plus linear
// interpolation inside the current period, clipped to zero below one cent.
func (o *UsdOracle) premiumUsd(expires, now int64) decimal.Decimal {
	if expires <= 0 {
		return decimal.Zero
	}
	graceEnd := expires + o.grace
	if now < graceEnd {
		return decimal.Zero
	}
	elapsed := now - graceEnd
	halvings := elapsed / o.premiumPeriod
	if halvings > 40 {
		return decimal.Zero
	}
	p := o.premiumStart.Div(decimal.NewFromInt(int64(1) << uint(halvings)))
	rem := elapsed % o.premiumPeriod
	// within the period, fall linearly towards the next halving
	p = p.Sub(p.Div(decimal.NewFromInt(2)).Mul(decimal.NewFromInt(rem)).Div(decimal.NewFromInt(o.premiumPeriod)))
	if p.LessThan(decimal.NewFromFloat(0.01)) {
		return decimal.Zero
	}
	return p
}

func (o *UsdOracle) toWei(usd decimal.Decimal) (*big.Int, error) {
	rate, err := o.rate.UsdPerEth()
	if err != nil {
		return nil, err
	}
	if rate.Sign() <= 0 {
		return nil, ErrNotExist
	}
	wei := usd.Div(rate).Mul(weiPerEth)
	return wei.Round(0).BigInt(), nil
}

func (o *UsdOracle) Quote(label string, expires, duration, now int64) (Quote, error) {
	baseUsd := o.yearlyUsd(label).
		Mul(decimal.NewFromInt(duration)).
		Div(decimal.NewFromInt(secondsPerYear))
	base, err := o.toWei(baseUsd)
	if err != nil {
		return Quote{}, err
	}
	premium, err := o.toWei(o.premiumUsd(expires, now))
	if err != nil {
		return Quote{}, err
	}
	return Quote{Base: base, Premium: premium}, nil
}

func (o *UsdOracle) Describe() string {
	prices := make([]string, 0, len(o.usdPrices))
	for _, p := range o.usdPrices {
		prices = append(prices, p.String())
	}
	return fmt.Sprintf("usd-oracle(yearly=%s,premium=%s/%ds)",
		strings.Join(prices, ","), o.premiumStart.String(), o.premiumPeriod)
}
