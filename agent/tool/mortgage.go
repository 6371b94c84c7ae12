package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const ToolMortgageCalculator = "mortgage_calculator"

// MortgageInput is the declared tool input. All fields are required; ZipCode
// is descriptive only and never enters the computation.
type MortgageInput struct {
	HomePrice           float64 `json:"homePrice"`
	DownPayment         float64 `json:"downPayment"`
	LoanTermYears       float64 `json:"loanTermYears"`
	InterestRatePercent float64 `json:"interestRatePercent"`
	ZipCode             string  `json:"zipCode"`
}

type MortgageResult struct {
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalAmount    float64 `json:"totalAmount"`
	TotalInterest  float64 `json:"totalInterest"`
}

// Calculate runs the standard amortization formula
// M = P [ i(1 + i)^n ] / [ (1 + i)^n - 1 ]. It performs no validation;
// callers are expected to reject a non-positive term before reaching it.
func Calculate(in MortgageInput) MortgageResult {
	loanAmount := in.HomePrice - in.DownPayment
	monthlyRate := in.InterestRatePercent / 100 / 12
	numPayments := in.LoanTermYears * 12

	var monthlyPayment float64
	if monthlyRate == 0 {
		monthlyPayment = loanAmount / numPayments
	} else {
		power := math.Pow(1+monthlyRate, numPayments)
		monthlyPayment = loanAmount * (monthlyRate * power) / (power - 1)
	}

	monthlyPayment = round2(monthlyPayment)
	totalAmount := round2(monthlyPayment * numPayments)
	totalInterest := round2(totalAmount - loanAmount)

	return MortgageResult{
		MonthlyPayment: monthlyPayment,
		TotalAmount:    totalAmount,
		TotalInterest:  totalInterest,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseMortgageInput decodes raw tool arguments and rejects inputs that would
// make the formula meaningless before they reach Calculate.
func ParseMortgageInput(args map[string]any) (MortgageInput, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return MortgageInput{}, fmt.Errorf("encode tool input: %w", err)
	}
	var in MortgageInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return MortgageInput{}, fmt.Errorf("decode tool input: %w", err)
	}

	switch {
	case in.LoanTermYears <= 0:
		return MortgageInput{}, fmt.Errorf("loan term must be positive, got %v", in.LoanTermYears)
	case in.InterestRatePercent < 0:
		return MortgageInput{}, fmt.Errorf("interest rate must not be negative, got %v", in.InterestRatePercent)
	case in.HomePrice <= 0:
		return MortgageInput{}, fmt.Errorf("home price must be positive, got %v", in.HomePrice)
	case in.DownPayment < 0 || in.DownPayment > in.HomePrice:
		return MortgageInput{}, fmt.Errorf("down payment must be between 0 and the home price, got %v", in.DownPayment)
	case strings.TrimSpace(in.ZipCode) == "":
		return MortgageInput{}, fmt.Errorf("zip code is required")
	}
	return in, nil
}

// MortgageToolInfo declares the mortgage calculator to the chat model.
func MortgageToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolMortgageCalculator,
		Desc: "Calculate a mortgage payment simulation for the U.S. real estate market.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"homePrice": {
				Type:     schema.Number,
				Desc:     "The home price to calculate the mortgage for.",
				Required: true,
			},
			"downPayment": {
				Type:     schema.Number,
				Desc:     "Portion of the sale price of the home that is not financed.",
				Required: true,
			},
			"loanTermYears": {
				Type:     schema.Number,
				Desc:     "Number of years to repay the loan.",
				Required: true,
			},
			"interestRatePercent": {
				Type:     schema.Number,
				Desc:     "Annual interest rate of the loan, expressed as a percentage.",
				Required: true,
			},
			"zipCode": {
				Type:     schema.String,
				Desc:     "The zip code of the property.",
				Required: true,
			},
		}),
	}
}
