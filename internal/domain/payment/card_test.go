package payment

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestValidLuhn(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4242424242424242", true},
		{"4000000000000002", true},
		{"5555555555554444", true},
		{"378282246310005", true},
		{"4242424242424241", false},
		{"1234567890123456", false},
		{"", false},
		{"4242abcd42424242", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidLuhn(tt.number))
		})
	}
}

func TestLuhnCheckDigit_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		length := 12 + rng.Intn(7)
		payload := make([]byte, length)
		for j := range payload {
			payload[j] = byte('0' + rng.Intn(10))
		}
		check := LuhnCheckDigit(string(payload))
		number := string(payload) + string(check)
		require.True(t, ValidLuhn(number), "number %s should pass", number)

		wrong := byte('0' + (int(check-'0')+1+rng.Intn(9))%10)
		assert.False(t, ValidLuhn(string(payload)+string(wrong)), "number %s%c should fail", payload, wrong)
	}
}

func TestNewCardAt(t *testing.T) {
	valid := Expiry{Year: 2027, Month: time.December}

	tests := []struct {
		name    string
		number  string
		holder  string
		expiry  Expiry
		cvv     string
		wantErr error
	}{
		{name: "valid visa", number: "4242 4242 4242 4242", holder: "Jane Doe", expiry: valid, cvv: "123"},
		{name: "valid amex with dashes", number: "3782-822463-10005", holder: "Jane Doe", expiry: valid, cvv: "1234"},
		{name: "too short", number: "424242", holder: "Jane Doe", expiry: valid, cvv: "123", wantErr: ErrInvalidCard},
		{name: "bad checksum", number: "4242424242424241", holder: "Jane Doe", expiry: valid, cvv: "123", wantErr: ErrInvalidCard},
		{name: "expired", number: "4242424242424242", holder: "Jane Doe", expiry: Expiry{Year: 2026, Month: time.May}, cvv: "123", wantErr: ErrExpiredCard},
		{name: "bad cvv", number: "4242424242424242", holder: "Jane Doe", expiry: valid, cvv: "12", wantErr: ErrInvalidCVV},
		{name: "holder too short", number: "4242424242424242", holder: "J", expiry: valid, cvv: "123", wantErr: ErrInvalidCardHolder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, err := NewCardAt(tt.number, tt.holder, tt.expiry, tt.cvv, cardNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, card.HasCredentials())
			assert.NoError(t, card.Validate(cardNow))
		})
	}
}

func TestExpiry_CurrentMonthIsStillValid(t *testing.T) {
	e := Expiry{Year: 2026, Month: time.June}
	assert.False(t, e.ExpiredAt(cardNow))
	assert.True(t, e.ExpiredAt(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseExpiry(t *testing.T) {
	for _, in := range []string{"12/27", "12/2027", "2027-12"} {
		t.Run(in, func(t *testing.T) {
			e, err := ParseExpiry(in)
			require.NoError(t, err)
			assert.Equal(t, Expiry{Year: 2027, Month: time.December}, e)
		})
	}

	_, err := ParseExpiry("13/27")
	assert.ErrorIs(t, err, ErrExpiredCard)
	_, err = ParseExpiry("1227")
	assert.Error(t, err)
}

func TestCard_Masking(t *testing.T) {
	card, err := NewCardAt("4242424242424242", "Jane Doe", Expiry{Year: 2027, Month: time.January}, "123", cardNow)
	require.NoError(t, err)

	assert.Equal(t, "4242", card.LastFour())
	assert.Equal(t, "visa", card.Brand())
	assert.Equal(t, "************4242", card.MaskedNumber())
	assert.Equal(t, card.MaskedNumber(), card.String())
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", card, card, card), "4242424242424242")

	raw, err := json.Marshal(card)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4242424242424242")
	assert.NotContains(t, string(raw), "123\"")
	assert.Contains(t, string(raw), "************4242")
}

func TestRestoreCard_HasNoCredentials(t *testing.T) {
	card := RestoreCard("4242", "Jane Doe", Expiry{Year: 2027, Month: time.January}, "visa", "fp")

	assert.False(t, card.HasCredentials())
	assert.Equal(t, "************4242", card.MaskedNumber())
	assert.ErrorIs(t, card.Validate(cardNow), ErrInvalidCard)
}

func TestNewBankAccount(t *testing.T) {
	acct, err := NewBankAccount("1234-5678-90", "BANKUS33", "Acme Ltd")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", acct.AccountNumber())
	assert.Equal(t, "******7890", acct.MaskedAccountNumber())

	_, err = NewBankAccount("12", "BANKUS33", "Acme Ltd")
	assert.ErrorIs(t, err, ErrInvalidAccount)
	_, err = NewBankAccount("1234567890", "B!", "Acme Ltd")
	assert.ErrorIs(t, err, ErrInvalidAccount)
	_, err = NewBankAccount("1234567890", "BANKUS33", " ")
	assert.ErrorIs(t, err, ErrInvalidAccount)
}
