package payment

import (
	"testing"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeResult(t *testing.T) {
	intent := domain.PaymentIntent{ClientSecret: "pi_1", AmountCents: 4000, Currency: "thb"}

	t.Run("successful", func(t *testing.T) {
		ch := &omise.Charge{}
		ch.ID = "chrg_test_1"
		ch.Status = "successful"

		receipt, err := chargeResult(ch, intent)
		require.NoError(t, err)
		assert.Equal(t, "chrg_test_1", receipt.Reference)
		assert.Equal(t, int64(4000), receipt.AmountCents)
	})

	t.Run("failed carries provider code", func(t *testing.T) {
		code, msg := "insufficient_fund", "insufficient funds in the account"
		ch := &omise.Charge{}
		ch.Status = "failed"
		ch.FailureCode = &code
		ch.FailureMessage = &msg

		_, err := chargeResult(ch, intent)
		var perr *domain.PaymentError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, code, perr.Code)
		assert.Equal(t, msg, perr.Message)
	})

	t.Run("pending is not success", func(t *testing.T) {
		ch := &omise.Charge{}
		ch.Status = "pending"

		_, err := chargeResult(ch, intent)
		var perr *domain.PaymentError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "charge_pending", perr.Code)
	})
}

func TestFromOmiseError(t *testing.T) {
	err := fromOmiseError(&omise.Error{Code: "invalid_card", Message: "card is invalid"})

	var perr *domain.PaymentError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "invalid_card", perr.Code)
}
