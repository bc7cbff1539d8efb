package account

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Record is an immutable snapshot of one ledger account as reported by the
// service. Amounts that the service did not report stay invalid
// (Valid == false); they are never filled with zero.
type Record struct {
	AccountID       ID
	AssetCode       string
	AssetScale      uint32
	Description     string
	Balance         decimal.NullDecimal
	PrepaidAmount   decimal.NullDecimal
	ClearingBalance decimal.NullDecimal
	CreatedAt       time.Time
	ModifiedAt      time.Time
}

// NetBalance is ClearingBalance plus PrepaidAmount. It is invalid unless the
// service reported both.
func (r Record) NetBalance() decimal.NullDecimal {
	if !r.ClearingBalance.Valid || !r.PrepaidAmount.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(r.ClearingBalance.Decimal.Add(r.PrepaidAmount.Decimal))
}

// Equal reports whether r and o carry the same contents.
func (r Record) Equal(o Record) bool {
	return r.AccountID == o.AccountID &&
		r.AssetCode == o.AssetCode &&
		r.AssetScale == o.AssetScale &&
		r.Description == o.Description &&
		nullDecimalEqual(r.Balance, o.Balance) &&
		nullDecimalEqual(r.PrepaidAmount, o.PrepaidAmount) &&
		nullDecimalEqual(r.ClearingBalance, o.ClearingBalance) &&
		r.CreatedAt.Equal(o.CreatedAt) &&
		r.ModifiedAt.Equal(o.ModifiedAt)
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

type recordListing struct {
	AccountID       string `yaml:"accountId"`
	AssetCode       string `yaml:"assetCode"`
	AssetScale      uint32 `yaml:"assetScale"`
	Description     string `yaml:"description,omitempty"`
	Balance         string `yaml:"balance,omitempty"`
	PrepaidAmount   string `yaml:"prepaidAmount,omitempty"`
	ClearingBalance string `yaml:"clearingBalance,omitempty"`
	NetBalance      string `yaml:"netBalance,omitempty"`
	CreatedAt       string `yaml:"createdAt,omitempty"`
	ModifiedAt      string `yaml:"modifiedAt,omitempty"`
}

// String renders a human-readable "field: value" listing.
// It is meant for operators and logs; do not parse it.
func (r Record) String() string {
	b, err := yaml.Marshal(recordListing{
		AccountID:       string(r.AccountID),
		AssetCode:       r.AssetCode,
		AssetScale:      r.AssetScale,
		Description:     r.Description,
		Balance:         amountString(r.Balance),
		PrepaidAmount:   amountString(r.PrepaidAmount),
		ClearingBalance: amountString(r.ClearingBalance),
		NetBalance:      amountString(r.NetBalance()),
		CreatedAt:       timeString(r.CreatedAt),
		ModifiedAt:      timeString(r.ModifiedAt),
	})
	if err != nil {
		return "accountId: " + string(r.AccountID)
	}
	return strings.TrimRight(string(b), "\n")
}

func amountString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
