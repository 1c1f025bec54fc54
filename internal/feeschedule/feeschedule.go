// Package feeschedule loads fee definitions from a yaml file so
// operations can adjust fee amounts without a code change.
package feeschedule

import (
	"fmt"
	"os"

	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type scheduleFile struct {
	Fees []feeEntry `yaml:"fees"`
}

type feeEntry struct {
	Name string `yaml:"name"`
	// Amount is a string in the file to avoid float parsing.
	Amount string `yaml:"amount"`
}

func Load(path string) ([]domain.FeeType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee schedule %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]domain.FeeType, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse fee schedule: %w", err)
	}

	feeTypes := make([]domain.FeeType, 0, len(file.Fees))
	seen := make(map[string]struct{}, len(file.Fees))
	for i, entry := range file.Fees {
		if entry.Name == "" {
			return nil, fmt.Errorf("fee schedule entry %d: name is required", i)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("fee schedule entry %d: duplicate fee %q", i, entry.Name)
		}
		seen[entry.Name] = struct{}{}

		amount, err := decimal.NewFromString(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("fee schedule entry %q: bad amount %q: %w", entry.Name, entry.Amount, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("fee schedule entry %q: amount must be positive, got %s", entry.Name, amount)
		}

		feeTypes = append(feeTypes, domain.FeeType{FeeName: entry.Name, DefaultAmount: amount})
	}
	return feeTypes, nil
}
