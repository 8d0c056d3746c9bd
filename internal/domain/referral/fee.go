package referral

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// TierThresholdCents is the base amount ($400,000) up to which the lower default tier applies.
	TierThresholdCents int64 = 40_000_000

	LowerTierReferralFeeBps int64 = 2500
	UpperTierReferralFeeBps int64 = 3500

	// DefaultCommissionBps is applied when a referral carries no commission rate yet.
	DefaultCommissionBps int64 = 300
)

var (
	bpsDenominator = decimal.NewFromInt(10_000)
	maxAmount      = decimal.NewFromInt(math.MaxInt64)
)

// FeeDue derives the referral fee for baseCents. The commission is rounded to
// the cent first and the referral share of that commission is rounded second.
// A referralFeeBps of zero or less selects the tiered default.
func FeeDue(baseCents int64, commissionBps int64, referralFeeBps int64) (int64, error) {
	if baseCents < 0 {
		return 0, fmt.Errorf("%w: negative base amount %d", ErrComputationInvariant, baseCents)
	}
	if commissionBps < 0 {
		return 0, fmt.Errorf("%w: negative commission rate %d", ErrComputationInvariant, commissionBps)
	}

	commission := applyBps(decimal.NewFromInt(baseCents), commissionBps)

	if referralFeeBps <= 0 {
		referralFeeBps = DefaultReferralFeeBps(baseCents)
	}
	return toInt64(applyBps(commission, referralFeeBps), "referral fee")
}

// DefaultReferralFeeBps is 25% up to the tier threshold and 35% above it.
func DefaultReferralFeeBps(baseCents int64) int64 {
	if baseCents <= TierThresholdCents {
		return LowerTierReferralFeeBps
	}
	return UpperTierReferralFeeBps
}

// ContractAmounts holds the financial fields fixed when a contract is signed.
type ContractAmounts struct {
	PurchasePriceCents  int64
	CommissionBps       int64
	ReferralFeeBps      int64
	ReferralFeeDueCents int64
}

// ComputeContractAmounts converts dollar and percentage inputs into cents and
// basis points. The fee is rounded once from the full product.
func ComputeContractAmounts(contractPriceDollars float64, commissionPercent float64, referralFeePercent float64) (ContractAmounts, error) {
	price := decimal.NewFromFloat(contractPriceDollars)
	commission := decimal.NewFromFloat(commissionPercent)
	referralFee := decimal.NewFromFloat(referralFeePercent)
	hundred := decimal.NewFromInt(100)

	priceCents := price.Mul(hundred)
	fee := priceCents.Mul(commission.Div(hundred)).Mul(referralFee.Div(hundred))

	var out ContractAmounts
	var err error
	if out.PurchasePriceCents, err = toInt64(priceCents.Round(0), "purchase price"); err != nil {
		return ContractAmounts{}, err
	}
	if out.CommissionBps, err = toInt64(commission.Mul(hundred).Round(0), "commission rate"); err != nil {
		return ContractAmounts{}, err
	}
	if out.ReferralFeeBps, err = toInt64(referralFee.Mul(hundred).Round(0), "referral fee rate"); err != nil {
		return ContractAmounts{}, err
	}
	if out.ReferralFeeDueCents, err = toInt64(fee.Round(0), "referral fee"); err != nil {
		return ContractAmounts{}, err
	}
	return out, nil
}

// toInt64 rejects values that are negative or do not fit in an int64
// instead of letting IntPart wrap them.
func toInt64(d decimal.Decimal, what string) (int64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative %s", ErrComputationInvariant, what)
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s %s out of range", ErrComputationInvariant, what, d.String())
	}
	return d.IntPart(), nil
}

func applyBps(amount decimal.Decimal, bps int64) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(bps)).DivRound(bpsDenominator, 0)
}
