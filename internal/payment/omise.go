package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

func NewOmiseClient(publicKey, secretKey string) (*omise.Client, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return c, nil
}

// OmiseProvider charges card tokens through Omise.
type OmiseProvider struct {
	client *omise.Client
}

func NewOmiseProvider(client *omise.Client) *OmiseProvider {
	return &OmiseProvider{client: client}
}

func (p *OmiseProvider) Charge(ctx context.Context, intent domain.PaymentIntent, details Details) (Receipt, error) {
	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:   intent.AmountCents,
		Currency: intent.Currency,
		Card:     details.CardToken,
		Metadata: map[string]any{"client_secret": intent.ClientSecret},
	}

	// The client has no context support; the call is abandoned, not
	// cancelled, when ctx ends first.
	done := make(chan error, 1)
	go func() { done <- p.client.Do(ch, req) }()

	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return Receipt{}, fromOmiseError(err)
		}
	}
	return chargeResult(ch, intent)
}

func chargeResult(ch *omise.Charge, intent domain.PaymentIntent) (Receipt, error) {
	switch string(ch.Status) {
	case "successful":
		return Receipt{Reference: ch.ID, AmountCents: intent.AmountCents, Currency: intent.Currency}, nil
	case "failed":
		perr := &domain.PaymentError{Code: CodeCardDeclined}
		if ch.FailureCode != nil {
			perr.Code = *ch.FailureCode
		}
		if ch.FailureMessage != nil {
			perr.Message = *ch.FailureMessage
		}
		return Receipt{}, perr
	default:
		// pending and awaiting_authorize need a redirect flow that checkout
		// does not drive.
		return Receipt{}, &domain.PaymentError{
			Code:    "charge_" + string(ch.Status),
			Message: fmt.Sprintf("charge %s was left %s", ch.ID, ch.Status),
		}
	}
}

func fromOmiseError(err error) error {
	var oe *omise.Error
	if errors.As(err, &oe) {
		return &domain.PaymentError{Code: oe.Code, Message: oe.Message}
	}
	return err
}

var _ Provider = (*OmiseProvider)(nil)
