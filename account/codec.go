package account

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire field names. They are identical for every binding.
const (
	FieldAccountID       = "accountId"
	FieldAssetCode       = "assetCode"
	FieldAssetScale      = "assetScale"
	FieldDescription     = "description"
	FieldBalance         = "balance"
	FieldPrepaidAmount   = "prepaidAmount"
	FieldClearingBalance = "clearingBalance"
	FieldCreatedAt       = "createdAt"
	FieldModifiedAt      = "modifiedAt"
	FieldJWT             = "jwt"
)

const maxAssetScale = 255

// DecodeError reports a payload that does not satisfy the record schema.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return "account: " + e.Reason
	}
	return fmt.Sprintf("account: field %q: %s", e.Field, e.Reason)
}

// EncodeRecord converts r into its wire form. Absent amounts and zero
// timestamps are omitted.
func EncodeRecord(r Record) *structpb.Struct {
	f := map[string]*structpb.Value{
		FieldAccountID:  structpb.NewStringValue(string(r.AccountID)),
		FieldAssetCode:  structpb.NewStringValue(r.AssetCode),
		FieldAssetScale: structpb.NewNumberValue(float64(r.AssetScale)),
	}
	if r.Description != "" {
		f[FieldDescription] = structpb.NewStringValue(r.Description)
	}
	putAmount(f, FieldBalance, r.Balance)
	putAmount(f, FieldPrepaidAmount, r.PrepaidAmount)
	putAmount(f, FieldClearingBalance, r.ClearingBalance)
	putTime(f, FieldCreatedAt, r.CreatedAt)
	putTime(f, FieldModifiedAt, r.ModifiedAt)
	return &structpb.Struct{Fields: f}
}

// DecodeRecord converts a wire payload into a Record.
// On error the zero Record is returned; partial records are never handed out.
func DecodeRecord(s *structpb.Struct) (Record, error) {
	if s == nil {
		return Record{}, &DecodeError{Reason: "missing payload"}
	}
	f := s.GetFields()

	var r Record
	id, err := stringField(f, FieldAccountID, true)
	if err != nil {
		return Record{}, err
	}
	code, err := stringField(f, FieldAssetCode, true)
	if err != nil {
		return Record{}, err
	}
	scale, err := scaleField(f, FieldAssetScale)
	if err != nil {
		return Record{}, err
	}
	desc, err := stringField(f, FieldDescription, false)
	if err != nil {
		return Record{}, err
	}
	r.AccountID = ID(id)
	r.AssetCode = code
	r.AssetScale = scale
	r.Description = desc

	for _, a := range []struct {
		name string
		dst  *decimal.NullDecimal
	}{
		{FieldBalance, &r.Balance},
		{FieldPrepaidAmount, &r.PrepaidAmount},
		{FieldClearingBalance, &r.ClearingBalance},
	} {
		v, err := amountField(f, a.name)
		if err != nil {
			return Record{}, err
		}
		*a.dst = v
	}
	if r.CreatedAt, err = timeField(f, FieldCreatedAt); err != nil {
		return Record{}, err
	}
	if r.ModifiedAt, err = timeField(f, FieldModifiedAt); err != nil {
		return Record{}, err
	}
	return r, nil
}

// EncodeCreateRequest converts r into its wire form.
func EncodeCreateRequest(r CreateRequest) *structpb.Struct {
	f := map[string]*structpb.Value{
		FieldAccountID:  structpb.NewStringValue(string(r.AccountID)),
		FieldAssetCode:  structpb.NewStringValue(r.AssetCode),
		FieldAssetScale: structpb.NewNumberValue(float64(r.AssetScale)),
	}
	if r.Description != "" {
		f[FieldDescription] = structpb.NewStringValue(r.Description)
	}
	if r.JWT != "" {
		f[FieldJWT] = structpb.NewStringValue(r.JWT)
	}
	return &structpb.Struct{Fields: f}
}

// DecodeCreateRequest is the service-side inverse of EncodeCreateRequest.
func DecodeCreateRequest(s *structpb.Struct) (CreateRequest, error) {
	if s == nil {
		return CreateRequest{}, &DecodeError{Reason: "missing payload"}
	}
	f := s.GetFields()
	id, err := stringField(f, FieldAccountID, true)
	if err != nil {
		return CreateRequest{}, err
	}
	code, err := stringField(f, FieldAssetCode, true)
	if err != nil {
		return CreateRequest{}, err
	}
	scale, err := scaleField(f, FieldAssetScale)
	if err != nil {
		return CreateRequest{}, err
	}
	desc, err := stringField(f, FieldDescription, false)
	if err != nil {
		return CreateRequest{}, err
	}
	jwt, err := stringField(f, FieldJWT, false)
	if err != nil {
		return CreateRequest{}, err
	}
	return CreateRequest{AccountID: ID(id), AssetCode: code, AssetScale: scale, Description: desc, JWT: jwt}, nil
}

func present(f map[string]*structpb.Value, name string) (*structpb.Value, bool) {
	v, ok := f[name]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(f map[string]*structpb.Value, name string, required bool) (string, error) {
	v, ok := present(f, name)
	if !ok {
		if required {
			return "", &DecodeError{Field: name, Reason: "missing"}
		}
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", &DecodeError{Field: name, Reason: "expected string"}
	}
	if required && sv.StringValue == "" {
		return "", &DecodeError{Field: name, Reason: "empty"}
	}
	return sv.StringValue, nil
}

func scaleField(f map[string]*structpb.Value, name string) (uint32, error) {
	v, ok := present(f, name)
	if !ok {
		return 0, &DecodeError{Field: name, Reason: "missing"}
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, &DecodeError{Field: name, Reason: "expected number"}
	}
	n := nv.NumberValue
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < 0 || n > maxAssetScale {
		return 0, &DecodeError{Field: name, Reason: fmt.Sprintf("expected integer in [0,%d], got %v", maxAssetScale, n)}
	}
	return uint32(n), nil
}

func amountField(f map[string]*structpb.Value, name string) (decimal.NullDecimal, error) {
	v, ok := present(f, name)
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(k.StringValue))
		if err != nil {
			return decimal.NullDecimal{}, &DecodeError{Field: name, Reason: "invalid decimal " + fmt.Sprintf("%q", k.StringValue)}
		}
		return decimal.NewNullDecimal(d), nil
	case *structpb.Value_NumberValue:
		if math.IsNaN(k.NumberValue) || math.IsInf(k.NumberValue, 0) {
			return decimal.NullDecimal{}, &DecodeError{Field: name, Reason: "non-finite number"}
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(k.NumberValue)), nil
	default:
		return decimal.NullDecimal{}, &DecodeError{Field: name, Reason: "expected decimal string or number"}
	}
}

func timeField(f map[string]*structpb.Value, name string) (time.Time, error) {
	s, err := stringField(f, name, false)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &DecodeError{Field: name, Reason: "expected RFC 3339 timestamp"}
	}
	return t, nil
}

func putAmount(f map[string]*structpb.Value, name string, d decimal.NullDecimal) {
	if d.Valid {
		f[name] = structpb.NewStringValue(d.Decimal.String())
	}
}

func putTime(f map[string]*structpb.Value, name string, t time.Time) {
	if !t.IsZero() {
		f[name] = structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
	}
}
