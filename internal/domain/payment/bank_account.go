package payment

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	accountNumberPattern = regexp.MustCompile(`^[0-9]{6,20}$`)
	bankCodePattern      = regexp.MustCompile(`^[A-Za-z0-9]{3,11}$`)
)

// BankAccount identifies the debtor account of a bank transfer.
type BankAccount struct {
	accountNumber string
	bankCode      string
	holder        string
}

// NewBankAccount validates and builds a BankAccount.
func NewBankAccount(accountNumber, bankCode, holder string) (BankAccount, error) {
	accountNumber = strings.ReplaceAll(strings.TrimSpace(accountNumber), "-", "")
	bankCode = strings.TrimSpace(bankCode)
	holder = strings.TrimSpace(holder)

	a := BankAccount{accountNumber: accountNumber, bankCode: bankCode, holder: holder}
	if err := a.Validate(); err != nil {
		return BankAccount{}, err
	}
	return a, nil
}

// Validate checks that account number, bank code and holder are present and
// well formed.
func (a BankAccount) Validate() error {
	if a.accountNumber == "" {
		return ErrInvalidAccount.WithMessage("account number is required")
	}
	if !accountNumberPattern.MatchString(a.accountNumber) {
		return ErrInvalidAccount.WithMessage("account number must be 6-20 digits")
	}
	if a.bankCode == "" {
		return ErrInvalidAccount.WithMessage("bank code is required")
	}
	if !bankCodePattern.MatchString(a.bankCode) {
		return ErrInvalidAccount.WithMessage("bank code must be 3-11 alphanumeric characters")
	}
	if a.holder == "" {
		return ErrInvalidAccount.WithMessage("account holder is required")
	}
	return nil
}

func (a BankAccount) AccountNumber() string { return a.accountNumber }
func (a BankAccount) BankCode() string      { return a.bankCode }
func (a BankAccount) Holder() string        { return a.holder }

// IsZero reports whether a is the zero BankAccount.
func (a BankAccount) IsZero() bool { return a.accountNumber == "" && a.bankCode == "" }

// MaskedAccountNumber shows only the last four digits.
func (a BankAccount) MaskedAccountNumber() string {
	if len(a.accountNumber) <= 4 {
		return a.accountNumber
	}
	return strings.Repeat("*", len(a.accountNumber)-4) + a.accountNumber[len(a.accountNumber)-4:]
}

func (a BankAccount) String() string { return a.bankCode + ":" + a.MaskedAccountNumber() }

func (a BankAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AccountNumber string `json:"account_number"`
		BankCode      string `json:"bank_code"`
		Holder        string `json:"holder"`
	}{a.MaskedAccountNumber(), a.bankCode, a.holder})
}
