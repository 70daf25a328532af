package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims

	Kind        Kind     `json:"kind"`
	CompanyID   string   `json:"company_id,omitempty"`
	Role        string   `json:"role,omitempty"`
	Department  string   `json:"department,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	issuer string
}

func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer}
}

func (t *Tokens) Issue(c Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: c.Kind,
	}

	if c.Scope != nil {
		claims.CompanyID = c.Scope.CompanyID.String()
		claims.Role = c.Scope.Role
		claims.Department = c.Scope.Department
		claims.Permissions = c.Scope.Permissions
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

func (t *Tokens) Verify(token string) (Caller, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}

	switch claims.Kind {
	case KindOwner:
		return Owner(userID), nil
	case KindEmployee:
		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			return Caller{}, fmt.Errorf("%w: company: %w", ErrInvalidToken, err)
		}

		return Employee(userID, EmployeeScope{
			CompanyID:   companyID,
			Role:        claims.Role,
			Department:  claims.Department,
			Permissions: claims.Permissions,
		}), nil
	default:
		return Caller{}, fmt.Errorf("%w: unknown caller kind %q", ErrInvalidToken, claims.Kind)
	}
}
