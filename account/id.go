package account

import "errors"

var ErrEmptyID = errors.New("account: empty account id")

// ID names one ledger account. It is opaque to the client: any non-empty
// value is passed through untouched, and uniqueness is enforced by the
// remote service.
type ID string

func (id ID) Validate() error {
	if id == "" {
		return ErrEmptyID
	}
	return nil
}

func (id ID) String() string { return string(id) }

// Op is one operation of the account service.
type Op uint8

const (
	OpGetAccount Op = iota + 1
	OpGetBalance
	OpCreateAccount
)

const ServiceName = "hermes.account.v1.AccountService"

func (op Op) String() string {
	switch op {
	case OpGetAccount:
		return "GetAccount"
	case OpGetBalance:
		return "GetBalance"
	case OpCreateAccount:
		return "CreateAccount"
	default:
		return "Unknown"
	}
}

// FullMethod returns the gRPC method path, e.g.
// "/hermes.account.v1.AccountService/GetAccount".
func (op Op) FullMethod() string {
	return "/" + ServiceName + "/" + op.String()
}

// ReadOnly reports whether op never mutates the ledger.
func (op Op) ReadOnly() bool { return op == OpGetAccount || op == OpGetBalance }

// Query addresses one account for one operation.
// It is a plain value: copies never alias, so it cannot change once built.
type Query struct {
	ID ID
	Op Op
}

// NewQuery validates id and returns the query.
func NewQuery(op Op, id ID) (Query, error) {
	if err := id.Validate(); err != nil {
		return Query{Op: op}, err
	}
	return Query{ID: id, Op: op}, nil
}
