package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/tokenstore"
)

// Claims is the payload of a gateway-issued token, as far as this client reads it.
//
// The signature is never checked here. Claims only feed display fields such as
// the user's email; the gateway decides whether the token is valid. Each field
// is read on its own, so one claim of an unexpected type does not hide the rest.
type Claims struct {
	UserID       int64
	Email        string
	Subject      string
	CustomerType domain.CustomerType
	Type         domain.CustomerType
	ExpiresAt    *time.Time
	Raw          jwt.MapClaims
}

// User derives the display identity carried by the claims.
func (c *Claims) User() *domain.User {
	if c == nil {
		return nil
	}
	user := &domain.User{UserID: c.UserID, Email: c.Email}
	if user.Email == "" {
		user.Email = c.Subject
	}
	switch {
	case c.CustomerType.Valid():
		user.CustomerType = c.CustomerType
	case c.Type.Valid():
		user.CustomerType = c.Type
	}
	return user
}

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeToken reads the payload segment of a JWT-shaped string without
// verifying it. It returns nil when the token is not three segments or the
// payload is not a JSON object, and never fails loudly.
func DecodeToken(token string) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil
	}

	raw := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil
	}

	claims := &Claims{
		UserID:       int64Claim(raw["userId"]),
		Email:        stringClaim(raw["email"]),
		Subject:      stringClaim(raw["sub"]),
		CustomerType: customerTypeClaim(raw["customerType"]),
		Type:         customerTypeClaim(raw["type"]),
		Raw:          raw,
	}
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	return claims
}

func stringClaim(v any) string {
	s, _ := v.(string)
	return s
}

func int64Claim(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		if id, err := n.Int64(); err == nil {
			return id
		}
	case string:
		if id, err := strconv.ParseInt(n, 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func customerTypeClaim(v any) domain.CustomerType {
	ct, ok := domain.ParseCustomerType(stringClaim(v))
	if !ok {
		return ""
	}
	return ct
}

// Codec decodes either a given token or the one currently in storage.
type Codec struct {
	tokens tokenstore.Store
}

// NewCodec builds a codec over the token store.
func NewCodec(tokens tokenstore.Store) *Codec {
	return &Codec{tokens: tokens}
}

// Stored reads the stored token and decodes it. An absent token is "" with
// nil claims; an opaque token comes back with nil claims.
func (c *Codec) Stored(ctx context.Context) (string, *Claims, error) {
	if c == nil || c.tokens == nil {
		return "", nil, nil
	}
	token, ok, err := c.tokens.Get(ctx)
	if err != nil {
		return "", nil, err
	}
	if !ok || token == "" {
		return "", nil, nil
	}
	return token, DecodeToken(token), nil
}

// Decode decodes token, or the stored token when none is given.
// Storage errors and absence both yield nil.
func (c *Codec) Decode(ctx context.Context, token ...string) *Claims {
	if len(token) > 0 {
		return DecodeToken(token[0])
	}
	_, claims, err := c.Stored(ctx)
	if err != nil {
		return nil
	}
	return claims
}
