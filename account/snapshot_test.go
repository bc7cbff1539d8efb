package account

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSnapshotID_StableForEqualContents(t *testing.T) {
	a := Record{AccountID: "connie", AssetCode: "USD", AssetScale: 2, Balance: decimal.NewNullDecimal(decimal.RequireFromString("500"))}
	b := Record{AccountID: "connie", AssetCode: "USD", AssetScale: 2, Balance: decimal.NewNullDecimal(decimal.RequireFromString("500.00"))}

	idA, err := SnapshotID(a)
	if err != nil {
		t.Fatalf("SnapshotID(a): %v", err)
	}
	idB, err := SnapshotID(b)
	if err != nil {
		t.Fatalf("SnapshotID(b): %v", err)
	}
	if !idA.Defined() {
		t.Fatalf("expected defined CID")
	}
	if idA != idB {
		t.Fatalf("equal contents, different IDs: %s vs %s", idA, idB)
	}

	c := a
	c.AssetScale = 3
	idC, err := SnapshotID(c)
	if err != nil {
		t.Fatalf("SnapshotID(c): %v", err)
	}
	if idC == idA {
		t.Fatalf("different contents share an ID")
	}
}
