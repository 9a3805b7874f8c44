// Package credential issues the unguessable claim credentials for a gift:
// the public claim code embedded in the shareable URL and the optional
// human-shareable secret verified by salted-hash comparison.
package credential

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"

	"github.com/giftrail/giftrail/errors"
)

const (
	// claimCodeBytes gives 128 bits of entropy, encoded as base64url so the
	// code is safe in a URL path segment.
	claimCodeBytes = 16

	// secretLength is the length of the out-of-band claim secret.
	secretLength = 12

	// secretAlphabet avoids characters that are ambiguous when spoken or
	// typed (no 0/O, 1/l/I).
	secretAlphabet = "abcdefghijkmnpqrstuvwxyzACDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Credentials holds a freshly issued claim code and, if requested, the
// one-time secret plus the only form of it that may be persisted.
type Credentials struct {
	ClaimCode string

	// ClaimSecret is returned exactly once and never stored or logged.
	ClaimSecret string

	// SecretHash is the bcrypt hash of ClaimSecret; empty when no secret
	// gate was requested.
	SecretHash string
}

// Issuer issues claim credentials. It is stateless; its only side effect is
// randomness consumption.
type Issuer struct{}

// NewIssuer creates a new credential issuer.
func NewIssuer() *Issuer {
	return &Issuer{}
}

// Issue generates a claim code without a secret gate.
func (i *Issuer) Issue() (Credentials, error) {
	code, err := i.generateClaimCode()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{ClaimCode: code}, nil
}

// IssueWithSecret generates a claim code plus an independent secret.
func (i *Issuer) IssueWithSecret() (Credentials, error) {
	code, err := i.generateClaimCode()
	if err != nil {
		return Credentials{}, err
	}

	secret, err := i.generateSecret()
	if err != nil {
		return Credentials{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Credentials{}, errors.NewInternal("failed to hash claim secret", err)
	}

	return Credentials{
		ClaimCode:   code,
		ClaimSecret: secret,
		SecretHash:  string(hash),
	}, nil
}

// VerifySecret checks a presented secret against a stored hash.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// generateClaimCode reads from the system CSPRNG. A failing random source is
// a fatal condition; there is no weaker fallback.
func (i *Issuer) generateClaimCode() (string, error) {
	buf := make([]byte, claimCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.NewInternal("secure random source unavailable", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (i *Issuer) generateSecret() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.NewInternal("secure random source unavailable", err)
	}
	out := make([]byte, secretLength)
	for n, b := range buf {
		out[n] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return string(out), nil
}
