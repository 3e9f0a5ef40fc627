package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Category identifies which side of the balance sheet an instrument sits on.
type Category string

const (
	CategoryLoan     Category = "Loan"
	CategoryBond     Category = "Bond"
	CategoryMortgage Category = "Mortgage"
	CategoryDeposit  Category = "Deposit"
	CategoryNMD      Category = "NMD"
)

// IsAsset reports whether the category contributes to pv_assets.
func (c Category) IsAsset() bool {
	switch c {
	case CategoryLoan, CategoryBond, CategoryMortgage:
		return true
	default:
		return false
	}
}

// RateType distinguishes fixed-coupon from index-linked instruments.
type RateType string

const (
	RateFixed    RateType = "Fixed"
	RateFloating RateType = "Floating"
)

// PaymentFrequency is the contractual coupon frequency.
type PaymentFrequency string

const (
	FreqMonthly    PaymentFrequency = "Monthly"
	FreqQuarterly  PaymentFrequency = "Quarterly"
	FreqSemiAnnual PaymentFrequency = "Semi-Annually"
	FreqAnnual     PaymentFrequency = "Annually"
)

// Months returns the payment interval in months, or 0 for an unknown
// frequency.
func (f PaymentFrequency) Months() int {
	switch f {
	case FreqMonthly:
		return 1
	case FreqQuarterly:
		return 3
	case FreqSemiAnnual:
		return 6
	case FreqAnnual:
		return 12
	default:
		return 0
	}
}

// BehavioralFlag marks positions subject to a behavioral overlay.
type BehavioralFlag string

const (
	BehaviorNone           BehavioralFlag = ""
	BehaviorMortgagePrepay BehavioralFlag = "MortgagePrepay"
	BehaviorNMD            BehavioralFlag = "NMD"
)

// Position is one interest-sensitive banking-book position. It is external
// input and read-only to the engine.
type Position struct {
	InstrumentID     string           `validate:"required"`
	Category         Category         `validate:"required,oneof=Loan Bond Mortgage Deposit NMD"`
	Balance          float64          `validate:"gte=0"`
	RateType         RateType         `validate:"required,oneof=Fixed Floating"`
	CurrentRate      float64          `validate:"gte=-1"`
	SpreadBPS        float64          // floating only
	PaymentFreq      PaymentFrequency `validate:"required,oneof=Monthly Quarterly Semi-Annually Annually"`
	MaturityDate     time.Time
	NextRepriceDate  time.Time // floating only; zero means never reprices
	BehavioralFlag   BehavioralFlag
	IsCoreNMD        bool
}

// ValidationError reports a malformed or missing Position field. The field
// name is always carried so callers can surface it verbatim.
type ValidationError struct {
	Instrument string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("position %s: field %s: %s", e.Instrument, e.Field, e.Reason)
}

var validate = validator.New()

// Validate checks the mandatory fields and cross-field constraints of a
// Position. The first violation is returned as a ValidationError naming the
// offending field.
func (p Position) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Instrument: p.InstrumentID,
				Field:      fe.Field(),
				Reason:     fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return err
	}

	// Maturity is mandatory for anything with a contractual schedule.
	// Core NMDs are the one exception: their maturity is behavioral.
	if p.MaturityDate.IsZero() && !p.IsCoreNMD {
		return &ValidationError{
			Instrument: p.InstrumentID,
			Field:      "MaturityDate",
			Reason:     "missing maturity date on non-NMD position",
		}
	}
	if p.RateType == RateFloating && p.SpreadBPS < 0 {
		return &ValidationError{
			Instrument: p.InstrumentID,
			Field:      "SpreadBPS",
			Reason:     fmt.Sprintf("negative spread %v on floating position", p.SpreadBPS),
		}
	}
	// Unrecognized behavioral flags are tolerated here; the overlay passes
	// them through untouched.
	return nil
}

// ValidateAll validates a batch and stops at the first failure.
func ValidateAll(positions []Position) error {
	for _, p := range positions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
