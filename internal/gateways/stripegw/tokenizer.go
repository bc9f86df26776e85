package stripegw

import (
	"context"
	"fmt"

	"paycore/internal/domain/payment"

	"github.com/stripe/stripe-go/v72"
)

// testCardTokens maps Stripe test card numbers to their test tokens, so test
// mode never sends a card number over the wire.
var testCardTokens = map[string]string{
	"4242424242424242": "tok_visa",
	"4000056655665556": "tok_visa_debit",
	"5555555555554444": "tok_mastercard",
	"2223003122003222": "tok_mastercard",
	"378282246310005":  "tok_amex",
	"6011111111111117": "tok_discover",
	"3056930009020004": "tok_diners",
	"36227206271667":   "tok_diners",
	"4000000000000002": "tok_chargeDeclined",
	"4000000000009995": "tok_chargeDeclinedInsufficientFunds",
	"4000000000000069": "tok_chargeDeclinedExpiredCard",
	"4000000000000127": "tok_chargeDeclinedIncorrectCvc",
	"4000000000000119": "tok_chargeDeclinedProcessingError",
}

// TestToken returns the Stripe test token for a test card number.
func TestToken(number string) (string, bool) {
	tok, ok := testCardTokens[number]
	return tok, ok
}

// tokenKeySuffix derives the token idempotency key from the merchant
// reference. A resubmission gets the same token back.
const tokenKeySuffix = "-tok"

// tokenize exchanges card credentials for a single-use Stripe token.
func (g *Gateway) tokenize(ctx context.Context, card *payment.Card, merchantReference string) (string, error) {
	if tok, ok := TestToken(card.Number()); ok {
		return tok, nil
	}

	params := &stripe.TokenParams{
		Card: &stripe.CardParams{
			Number:   stripe.String(card.Number()),
			ExpMonth: stripe.String(card.Expiry().MonthString()),
			ExpYear:  stripe.String(card.Expiry().YearString()),
			CVC:      stripe.String(card.CVV()),
			Name:     stripe.String(card.Holder()),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(merchantReference + tokenKeySuffix)

	tok, err := g.tokens.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe tokenization failed: %w", err)
	}
	return tok.ID, nil
}
