package domain

import "github.com/shopspring/decimal"

// Direction of funds relative to the customer account
type Direction string

const (
	DirectionInbound  Direction = "Inbound"
	DirectionOutbound Direction = "Outbound"
)

// Valid reports whether the direction is known.
func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Transaction is a read-only catalog entry. It is not pre-associated with any case.
type Transaction struct {
	TransactionID string          `json:"transaction_id" yaml:"transaction_id"`
	Date          Date            `json:"date" yaml:"date"`
	Type          string          `json:"type" yaml:"type"`
	Amount        decimal.Decimal `json:"amount" yaml:"amount"`
	Direction     Direction       `json:"direction" yaml:"direction"`
	Counterparty  string          `json:"counterparty" yaml:"counterparty"`
	Country       string          `json:"country" yaml:"country"`
	RiskFlag      RiskLevel       `json:"risk_flag" yaml:"risk_flag"`
}
