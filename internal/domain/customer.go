package domain

import "github.com/shopspring/decimal"

// SanctionsResult is the outcome of sanctions screening
type SanctionsResult string

const (
	SanctionsNoMatch        SanctionsResult = "No Match"
	SanctionsPotentialMatch SanctionsResult = "Potential Match"
	SanctionsConfirmedMatch SanctionsResult = "Confirmed Match"
)

// Customer represents the KYC profile joined to an alert by customer name
type Customer struct {
	CustomerID         string          `json:"customer_id" yaml:"customer_id"`
	Name               string          `json:"name" yaml:"name"`
	RiskRating         RiskLevel       `json:"risk_rating" yaml:"risk_rating"`
	Occupation         string          `json:"occupation" yaml:"occupation"`
	Nationality        string          `json:"nationality" yaml:"nationality"`
	DateOfBirth        Date            `json:"date_of_birth" yaml:"date_of_birth"`
	IsPEP              bool            `json:"is_pep" yaml:"is_pep"` // Politically Exposed Person
	SanctionsScreening SanctionsResult `json:"sanctions_screening" yaml:"sanctions_screening"`
	MonitoringPlan     string          `json:"monitoring_plan" yaml:"monitoring_plan"`
	Identity           KYCIdentity     `json:"identity" yaml:"identity"`
	Address            KYCAddress      `json:"address" yaml:"address"`
	Documents          []KYCDocument   `json:"documents,omitempty" yaml:"documents"`
	Account            AccountProfile  `json:"account" yaml:"account"`
}

// AccountType is the product the monitored account is held under
type AccountType string

const (
	AccountTypeCorporateChecking AccountType = "Corporate Checking"
	AccountTypeSavings           AccountType = "Savings"
	AccountTypeInvestment        AccountType = "Investment"
)

// Valid reports whether the type is one of the known products.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCorporateChecking, AccountTypeSavings, AccountTypeInvestment:
		return true
	}
	return false
}

// AccountProfile is the primary account of a customer
type AccountProfile struct {
	AccountNumber string          `json:"account_number" yaml:"account_number"`
	AccountType   AccountType     `json:"account_type" yaml:"account_type"`
	Balance       decimal.Decimal `json:"balance" yaml:"balance"`
}

// FormattedBalance renders the balance as currency.
func (a AccountProfile) FormattedBalance() string { return FormatUSD(a.Balance) }

// KYCIdentity holds identity verification details
type KYCIdentity struct {
	NationalID string `json:"national_id" yaml:"national_id"`
}

// KYCAddress holds the registered address of the customer
type KYCAddress struct {
	Line       string `json:"line" yaml:"line"`
	Country    string `json:"country" yaml:"country"`
	PostalCode string `json:"postal_code" yaml:"postal_code"`
}

// KYCDocument is a verification document and its review status
type KYCDocument struct {
	Type   string `json:"type" yaml:"type"`     // Passport, Utility Bill, Company Registration
	Status string `json:"status" yaml:"status"` // Verified, Pending Review
}
