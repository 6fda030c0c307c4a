package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/metadata"
)

// ErrUnauthorized is returned when an admin operation carries no token or a wrong one.
var ErrUnauthorized = errors.New("unauthorized")

// TokenMetadataKey is the gRPC metadata key carrying the admin token.
const TokenMetadataKey = "authorization"

// HashToken creates a bcrypt hash of an admin token for the admin.token_hash setting.
//
// Precondition: token must be non-empty.
// Postcondition: Returns a bcrypt hash string.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("hashing token: token must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing token: %w", err)
	}
	return string(hash), nil
}

// AdminAuth checks admin tokens against a bcrypt hash. The zero value, or one
// built from an empty hash, rejects every token.
type AdminAuth struct {
	hash []byte
}

// NewAdminAuth creates an AdminAuth for the given bcrypt hash.
func NewAdminAuth(hash string) AdminAuth {
	return AdminAuth{hash: []byte(hash)}
}

// Enabled reports whether any token can pass.
func (a AdminAuth) Enabled() bool { return len(a.hash) > 0 }

// Check compares a plaintext token against the hash.
//
// Postcondition: Returns nil on a match, otherwise an error wrapping ErrUnauthorized.
func (a AdminAuth) Check(token string) error {
	if !a.Enabled() {
		return fmt.Errorf("%w: admin operations are disabled", ErrUnauthorized)
	}
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(token)) != nil {
		return fmt.Errorf("%w: bad token", ErrUnauthorized)
	}
	return nil
}

// CheckContext extracts "authorization: Bearer <token>" from incoming gRPC
// metadata and checks it.
func (a AdminAuth) CheckContext(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	var token string
	if vals := md.Get(TokenMetadataKey); len(vals) > 0 {
		token = strings.TrimSpace(strings.TrimPrefix(vals[0], "Bearer "))
	}
	return a.Check(token)
}
