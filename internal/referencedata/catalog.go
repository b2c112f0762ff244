// Package referencedata exposes the immutable alert, customer and transaction
// tables the workflow reads from. Shape is validated once when a catalog is built.
package referencedata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/banking/sar-workbench/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedDataset []byte

// Dataset is the on-disk shape of a reference dataset
type Dataset struct {
	Alerts       []domain.Alert       `yaml:"alerts"`
	Customers    []domain.Customer    `yaml:"customers"`
	Transactions []domain.Transaction `yaml:"transactions"`
}

// Catalog is a validated, read-only view over a Dataset
type Catalog struct {
	alerts       []domain.Alert
	alertIndex   map[string]int
	customers    map[string]domain.Customer
	transactions []domain.Transaction
	txnIndex     map[string]int
}

// Default returns the catalog built from the embedded seed dataset.
func Default() (*Catalog, error) {
	return Parse(seedDataset)
}

// Load reads a YAML dataset from path. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML dataset.
func Parse(data []byte) (*Catalog, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("%w: decode dataset: %v", domain.ErrInvalidArgument, err)
	}
	return New(ds)
}

// New validates the dataset and builds the lookup indexes.
func New(ds Dataset) (*Catalog, error) {
	if err := validate(ds); err != nil {
		return nil, err
	}

	c := &Catalog{
		alerts:       append([]domain.Alert(nil), ds.Alerts...),
		alertIndex:   make(map[string]int, len(ds.Alerts)),
		customers:    make(map[string]domain.Customer, len(ds.Customers)),
		transactions: append([]domain.Transaction(nil), ds.Transactions...),
		txnIndex:     make(map[string]int, len(ds.Transactions)),
	}
	for i, a := range c.alerts {
		c.alertIndex[a.AlertID] = i
	}
	for _, cust := range ds.Customers {
		c.customers[cust.Name] = cust
	}
	for i, t := range c.transactions {
		c.txnIndex[t.TransactionID] = i
	}
	return c, nil
}

func validate(ds Dataset) error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidArgument}, args...)...))
	}

	alertIDs := map[string]bool{}
	caseIDs := map[string]bool{}
	for i, a := range ds.Alerts {
		switch {
		case strings.TrimSpace(a.AlertID) == "":
			invalid("alert %d: alert_id is required", i)
		case alertIDs[a.AlertID]:
			invalid("alert %s: duplicate alert_id", a.AlertID)
		}
		alertIDs[a.AlertID] = true

		switch {
		case strings.TrimSpace(a.CaseID) == "":
			invalid("alert %s: case_id is required", a.AlertID)
		case caseIDs[a.CaseID]:
			invalid("alert %s: duplicate case_id %s", a.AlertID, a.CaseID)
		}
		caseIDs[a.CaseID] = true

		if !a.RiskLevel.Valid() {
			invalid("alert %s: risk_level %q", a.AlertID, a.RiskLevel)
		}
		if a.Date.IsZero() {
			invalid("alert %s: date is required", a.AlertID)
		}
		if a.SuspiciousAmount.IsNegative() {
			invalid("alert %s: suspicious_amount must not be negative", a.AlertID)
		}
	}

	names := map[string]bool{}
	for i, c := range ds.Customers {
		if strings.TrimSpace(c.Name) == "" {
			invalid("customer %d: name is required", i)
			continue
		}
		if names[c.Name] {
			invalid("customer %s: duplicate name", c.Name)
		}
		names[c.Name] = true
		if !c.RiskRating.Valid() {
			invalid("customer %s: risk_rating %q", c.Name, c.RiskRating)
		}
		if c.Account.AccountNumber != "" {
			if !c.Account.AccountType.Valid() {
				invalid("customer %s: account_type %q", c.Name, c.Account.AccountType)
			}
			if c.Account.Balance.IsNegative() {
				invalid("customer %s: balance must not be negative", c.Name)
			}
		}
	}

	txnIDs := map[string]bool{}
	for i, t := range ds.Transactions {
		switch {
		case strings.TrimSpace(t.TransactionID) == "":
			invalid("transaction %d: transaction_id is required", i)
		case txnIDs[t.TransactionID]:
			invalid("transaction %s: duplicate transaction_id", t.TransactionID)
		}
		txnIDs[t.TransactionID] = true

		if t.Date.IsZero() {
			invalid("transaction %s: date is required", t.TransactionID)
		}
		if !t.Amount.IsPositive() {
			invalid("transaction %s: amount must be positive", t.TransactionID)
		}
		if !t.Direction.Valid() {
			invalid("transaction %s: direction %q", t.TransactionID, t.Direction)
		}
		if t.RiskFlag != "" && !t.RiskFlag.Valid() {
			invalid("transaction %s: risk_flag %q", t.TransactionID, t.RiskFlag)
		}
	}

	return errors.Join(errs...)
}

// Alerts returns all alerts in dataset order.
func (c *Catalog) Alerts() []domain.Alert {
	return append([]domain.Alert(nil), c.alerts...)
}

// Alert looks up an alert by id.
func (c *Catalog) Alert(alertID string) (domain.Alert, error) {
	i, ok := c.alertIndex[alertID]
	if !ok {
		return domain.Alert{}, fmt.Errorf("%w: alert %q", domain.ErrInvalidReference, alertID)
	}
	return c.alerts[i], nil
}

// Customer looks up a KYC profile by customer name.
func (c *Catalog) Customer(name string) (domain.Customer, error) {
	cust, ok := c.customers[name]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %q", domain.ErrNotFound, name)
	}
	return cust, nil
}

// Transactions returns the full catalog in dataset order.
func (c *Catalog) Transactions() []domain.Transaction {
	return append([]domain.Transaction(nil), c.transactions...)
}

// Transaction looks up a transaction by id.
func (c *Catalog) Transaction(transactionID string) (domain.Transaction, error) {
	i, ok := c.txnIndex[transactionID]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %q", domain.ErrInvalidReference, transactionID)
	}
	return c.transactions[i], nil
}
