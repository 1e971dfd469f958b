package domain

// RegisterInput carries a new account's credentials.
type RegisterInput struct {
	Email        string
	Password     string
	CustomerType CustomerType
}

// AuthResult is the gateway's answer to a successful register or login.
type AuthResult struct {
	UserID   int64
	Username string
	JWT      string
	Type     CustomerType
}

// User returns the session identity described by the result.
func (r AuthResult) User() *User {
	return &User{UserID: r.UserID, Email: r.Username, CustomerType: r.Type}
}
