package models

import "github.com/golang-jwt/jwt/v5"

// Roles carried in access tokens.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// CustomerClaims identifies the caller of the payment API. Admins may act on
// any customer's transactions.
type CustomerClaims struct {
	jwt.RegisteredClaims
	CustomerID string `json:"customer_id"`
	Role       string `json:"role"`
}

func (c *CustomerClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// ScopeCustomerID is the customer a request is restricted to, or "" for
// admins.
func (c *CustomerClaims) ScopeCustomerID() string {
	if c.IsAdmin() {
		return ""
	}
	return c.CustomerID
}
