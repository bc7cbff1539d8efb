package account

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CreateRequest carries the fields needed to open a new ledger account.
// JWT is forwarded opaquely; the client never inspects it.
type CreateRequest struct {
	AccountID   ID     `validate:"required"`
	AssetCode   string `validate:"required"`
	AssetScale  uint32 `validate:"lte=255"`
	Description string
	JWT         string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request locally, before any network activity.
func (r CreateRequest) Validate() error {
	if err := r.AccountID.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("account: invalid %s (%s=%s)", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("account: invalid create request: %w", err)
	}
	return nil
}
