package val_test

import (
	"context"
	"testing"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/val"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderInput struct {
	Number   string `json:"number"   validate:"required"`
	Customer string `json:"customer" validate:"min=3"`
	Amount   int64  `json:"amount"   validate:"gt=0"`
	Currency string `query:"currency" validate:"oneof=USD EUR"`
}

func TestValidateSchema(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		in := orderInput{Number: "A-1", Customer: "acme", Amount: 10, Currency: "USD"}
		assert.NoError(t, val.ValidateSchema(in))
	})

	t.Run("Invalid", func(t *testing.T) {
		in := orderInput{Customer: "ab", Currency: "GBP"}

		err := val.ValidateSchema(in)

		require.Error(t, err)
		e := errx.AsErrorX(err)
		assert.Equal(t, val.CodeValidationFailed, e.Code())
		assert.Equal(t, errx.T_Validation, e.Type())

		fields := e.Fields()
		assert.Equal(t, "This field is required", fields["number"])
		assert.Equal(t, "Must be at least 3 characters", fields["customer"])
		assert.Equal(t, "Must be greater than 0", fields["amount"])
		assert.Equal(t, "Must be one of: USD, EUR", fields["currency"])
	})

	t.Run("NotAStruct", func(t *testing.T) {
		err := val.ValidateSchema(42)

		assert.True(t, errx.IsCodeIn(err, val.CodeValidationFailed))
	})
}

func TestSchema_SeesCurrentValues(t *testing.T) {
	in := &orderInput{Number: "A-1", Customer: "acme", Amount: 10, Currency: "EUR"}
	action := val.Schema(in)

	require.NoError(t, action(context.Background()))

	in.Amount = 0
	assert.Error(t, action(context.Background()))
}
