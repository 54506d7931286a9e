package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.BuyerResolver = TokenVerifier{}

const leeway = 30 * time.Second

// Claims of a storefront access token.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type VerifierOpt func(*verifierOpts) error

type verifierOpts struct {
	hmacSecret []byte
	rsaKey     *rsa.PublicKey
	issuer     string
}

func HMACSecretOpt(secret string) VerifierOpt {
	return func(o *verifierOpts) error {
		if secret == "" {
			return nil
		}
		o.hmacSecret = []byte(secret)
		return nil
	}
}

// RSAPublicKeyFileOpt reads a PEM encoded public key.
func RSAPublicKeyFileOpt(path string) VerifierOpt {
	return func(o *verifierOpts) error {
		if path == "" {
			return nil
		}
		pem, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return err
		}
		o.rsaKey = key
		return nil
	}
}

// RSAPublicKeyOpt sets an already parsed key.
func RSAPublicKeyOpt(key *rsa.PublicKey) VerifierOpt {
	return func(o *verifierOpts) error {
		if key == nil {
			return errors.New("rsa public key is nil")
		}
		o.rsaKey = key
		return nil
	}
}

func IssuerOpt(issuer string) VerifierOpt {
	return func(o *verifierOpts) error {
		o.issuer = issuer
		return nil
	}
}

// A TokenVerifier resolves buyers from signed access tokens.
type TokenVerifier struct {
	parser     *jwt.Parser
	hmacSecret []byte
	rsaKey     *rsa.PublicKey
}

func NewTokenVerifier(opts ...VerifierOpt) (TokenVerifier, error) {
	const op = "NewTokenVerifier"

	var o verifierOpts
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return TokenVerifier{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	var methods []string
	if o.hmacSecret != nil {
		methods = append(methods, "HS256", "HS384", "HS512")
	}
	if o.rsaKey != nil {
		methods = append(methods, "RS256", "RS384", "RS512")
	}
	if len(methods) == 0 {
		return TokenVerifier{}, fmt.Errorf("%s: no verification key", op)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(o.issuer))
	}

	return TokenVerifier{
		parser:     jwt.NewParser(parserOpts...),
		hmacSecret: o.hmacSecret,
		rsaKey:     o.rsaKey,
	}, nil
}

// ResolveBuyer fails with [domain.ErrUnauthenticated]
// for a missing, malformed or expired token.
func (v TokenVerifier) ResolveBuyer(
	ctx context.Context, token string,
) (domain.Buyer, error) {
	const op = "TokenVerifier.ResolveBuyer"

	if err := ctx.Err(); err != nil {
		return domain.Buyer{}, fmt.Errorf("%s: %w", op, err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Buyer{}, fmt.Errorf("%s: %w", op, domain.ErrUnauthenticated)
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc)
	if err != nil {
		return domain.Buyer{}, fmt.Errorf(
			"%s: %w: %w", op, domain.ErrUnauthenticated, err,
		)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Buyer{}, fmt.Errorf(
			"%s: %w: missing sub", op, domain.ErrUnauthenticated,
		)
	}

	return domain.Buyer{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
	}, nil
}

func (v TokenVerifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacSecret != nil {
			return v.hmacSecret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	}
	return nil, errors.New("unexpected signing method")
}
