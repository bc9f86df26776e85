package payment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{13,19}$`)
	cvvPattern        = regexp.MustCompile(`^[0-9]{3,4}$`)
	cardSeparators    = strings.NewReplacer(" ", "", "-", "")
)

const (
	minHolderLength = 2
	maxHolderLength = 50
	maskedPrefixLen = 12
)

// Expiry is a card expiry year-month. A card is usable through the last
// day of its expiry month.
type Expiry struct {
	Year  int
	Month time.Month
}

// NewExpiry builds an Expiry from a numeric month and a two or four digit
// year.
func NewExpiry(year, month int) (Expiry, error) {
	if month < 1 || month > 12 {
		return Expiry{}, ErrExpiredCard.WithMessage("invalid expiry month %d", month)
	}
	if year >= 0 && year < 100 {
		year += 2000
	}
	if year < 2000 || year > 9999 {
		return Expiry{}, ErrExpiredCard.WithMessage("invalid expiry year %d", year)
	}
	return Expiry{Year: year, Month: time.Month(month)}, nil
}

// ParseExpiry accepts "MM/YY", "MM/YYYY" and "YYYY-MM".
func ParseExpiry(s string) (Expiry, error) {
	s = strings.TrimSpace(s)
	var monthPart, yearPart string
	switch {
	case strings.Contains(s, "/"):
		parts := strings.SplitN(s, "/", 2)
		monthPart, yearPart = parts[0], parts[1]
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		yearPart, monthPart = parts[0], parts[1]
	default:
		return Expiry{}, ErrExpiredCard.WithMessage("invalid expiry format %q", s)
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil {
		return Expiry{}, ErrExpiredCard.WithMessage("invalid expiry month %q", monthPart)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Expiry{}, ErrExpiredCard.WithMessage("invalid expiry year %q", yearPart)
	}
	return NewExpiry(year, month)
}

// ExpiredAt reports whether the expiry month lies before t's month.
func (e Expiry) ExpiredAt(t time.Time) bool {
	year, month := t.Year(), t.Month()
	return e.Year < year || (e.Year == year && e.Month < month)
}

// MonthString returns the two digit month.
func (e Expiry) MonthString() string { return fmt.Sprintf("%02d", int(e.Month)) }

// YearString returns the four digit year.
func (e Expiry) YearString() string { return strconv.Itoa(e.Year) }

func (e Expiry) String() string { return fmt.Sprintf("%04d-%02d", e.Year, int(e.Month)) }

// Card holds card credentials. The full number and the CVV are only present
// on cards built from user input; cards restored from storage carry the
// masked form and the fingerprint only.
type Card struct {
	number      string
	cvv         string
	holder      string
	expiry      Expiry
	lastFour    string
	brand       string
	fingerprint string
}

// NewCard validates and builds a Card against the current time.
func NewCard(number, holder string, expiry Expiry, cvv string) (Card, error) {
	return NewCardAt(number, holder, expiry, cvv, time.Now())
}

// NewCardAt validates and builds a Card, checking expiry against now.
func NewCardAt(number, holder string, expiry Expiry, cvv string, now time.Time) (Card, error) {
	holder = strings.TrimSpace(holder)
	if n := utf8.RuneCountInString(holder); n < minHolderLength || n > maxHolderLength {
		return Card{}, ErrInvalidCardHolder.WithMessage("card holder must be %d-%d characters", minHolderLength, maxHolderLength)
	}

	digits := cardSeparators.Replace(number)
	if !cardNumberPattern.MatchString(digits) {
		return Card{}, ErrInvalidCard.WithMessage("card number must be 13-19 digits")
	}
	if !ValidLuhn(digits) {
		return Card{}, ErrInvalidCard.WithMessage("card number failed checksum")
	}
	if expiry.ExpiredAt(now) {
		return Card{}, ErrExpiredCard
	}
	if !cvvPattern.MatchString(cvv) {
		return Card{}, ErrInvalidCVV.WithMessage("card security code must be 3-4 digits")
	}

	return Card{
		number:   digits,
		cvv:      cvv,
		holder:   holder,
		expiry:   expiry,
		lastFour: digits[len(digits)-4:],
		brand:    detectBrand(digits),
	}, nil
}

// RestoreCard rebuilds a stored card without credentials.
func RestoreCard(lastFour, holder string, expiry Expiry, brand, fingerprint string) Card {
	return Card{
		holder:      holder,
		expiry:      expiry,
		lastFour:    lastFour,
		brand:       brand,
		fingerprint: fingerprint,
	}
}

// ValidLuhn reports whether digits passes the Luhn checksum. digits must
// contain only ASCII digits.
func ValidLuhn(digits string) bool {
	if digits == "" {
		return false
	}
	var sum int
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// LuhnCheckDigit computes the digit that makes payload+digit Luhn-valid.
func LuhnCheckDigit(payload string) byte {
	var sum int
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

func detectBrand(digits string) string {
	prefix := func(n int) int {
		v, _ := strconv.Atoi(digits[:n])
		return v
	}
	switch {
	case digits[0] == '4':
		return "visa"
	case prefix(2) >= 51 && prefix(2) <= 55, prefix(4) >= 2221 && prefix(4) <= 2720:
		return "mastercard"
	case prefix(2) == 34 || prefix(2) == 37:
		return "amex"
	case prefix(4) == 6011, prefix(2) == 65, prefix(3) >= 644 && prefix(3) <= 649:
		return "discover"
	default:
		return "unknown"
	}
}

// Number returns the full card number. It is empty for restored cards and
// must only be handed to a gateway.
func (c Card) Number() string { return c.number }

// CVV returns the security code. It is never persisted.
func (c Card) CVV() string { return c.cvv }

// HasCredentials reports whether the card can be charged.
func (c Card) HasCredentials() bool { return c.number != "" && c.cvv != "" }

func (c Card) Holder() string      { return c.holder }
func (c Card) Expiry() Expiry      { return c.expiry }
func (c Card) LastFour() string    { return c.lastFour }
func (c Card) Brand() string       { return c.brand }
func (c Card) Fingerprint() string { return c.fingerprint }

// IsZero reports whether c is the zero Card.
func (c Card) IsZero() bool { return c.lastFour == "" }

// MaskedNumber returns the last four digits behind masking characters.
func (c Card) MaskedNumber() string {
	maskLen := maskedPrefixLen
	if c.number != "" {
		maskLen = len(c.number) - 4
	}
	return strings.Repeat("*", maskLen) + c.lastFour
}

// IsExpiredAt reports whether the card is expired at t.
func (c Card) IsExpiredAt(t time.Time) bool { return c.expiry.ExpiredAt(t) }

// Validate re-checks the card at t. Restored cards without credentials
// fail with ErrInvalidCard.
func (c Card) Validate(t time.Time) error {
	if !c.HasCredentials() {
		return ErrInvalidCard.WithMessage("card credentials are required")
	}
	if !cardNumberPattern.MatchString(c.number) || !ValidLuhn(c.number) {
		return ErrInvalidCard
	}
	if c.IsExpiredAt(t) {
		return ErrExpiredCard
	}
	if !cvvPattern.MatchString(c.cvv) {
		return ErrInvalidCVV
	}
	return nil
}

func (c Card) String() string { return c.MaskedNumber() }

// GoString keeps credentials out of %#v output.
func (c Card) GoString() string { return "payment.Card{" + c.MaskedNumber() + "}" }

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MaskedNumber string `json:"masked_number"`
		Holder       string `json:"holder"`
		Expiry       string `json:"expiry"`
		Brand        string `json:"brand"`
	}{c.MaskedNumber(), c.holder, c.expiry.String(), c.brand})
}
