package domain

import "strings"

// CustomerType distinguishes the two sides of a mentorship.
type CustomerType string

const (
	CustomerTypeMentor CustomerType = "MENTOR"
	CustomerTypeMentee CustomerType = "MENTEE"
)

// ParseCustomerType normalizes user input such as "mentor" into a CustomerType.
func ParseCustomerType(s string) (CustomerType, bool) {
	ct := CustomerType(strings.ToUpper(strings.TrimSpace(s)))
	return ct, ct.Valid()
}

// Valid reports whether the type is one the platform knows.
func (t CustomerType) Valid() bool {
	return t == CustomerTypeMentor || t == CustomerTypeMentee
}

// User is the identity shown for the signed-in customer.
// It comes from the gateway's auth response or, after a restart, from the
// unverified token payload; it is display data only.
type User struct {
	UserID       int64        `json:"userId"`
	Email        string       `json:"email"`
	CustomerType CustomerType `json:"customerType"`
}
