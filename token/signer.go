package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.MapClaims) (string, error)

	// Verify checks the signature of a raw token and returns its claims.
	// Time based claims are not validated here.
	Verify(raw string) (jwt.MapClaims, error)
}

// HMACSigner implements Signer using symmetric HMAC-SHA256
type HMACSigner struct {
	key SigningKey
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner creates a new HMAC signer with the given key
func NewHMACSigner(key SigningKey) *HMACSigner {
	return &HMACSigner{
		key: key,
	}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	if h.key.IsZero() {
		return "", errors.New("signing key is not initialised")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.key.bytes())
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *HMACSigner) Verify(raw string) (jwt.MapClaims, error) {
	if h.key.IsZero() {
		return nil, errors.New("signing key is not initialised")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, h.getVerificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify HMAC token")
	}
	return claims, nil
}

func (h *HMACSigner) getVerificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.key.bytes(), nil
}
