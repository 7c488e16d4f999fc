package authvalkey

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/property360/usersession/internal/auth"
	"github.com/property360/usersession/internal/serviceerr"
)

// Verifier checks access tokens issued by the auth service and extracts the
// session they carry.
type Verifier struct {
	keySet *jose.JSONWebKeySet
	issuer string
	algs   []jose.SignatureAlgorithm
	leeway time.Duration

	now func() time.Time
}

type VerifierOption func(*Verifier)

// WithClock replaces the clock used to validate token lifetimes.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(keySet *jose.JSONWebKeySet, issuer string, algs []string, leeway time.Duration, opts ...VerifierOption) *Verifier {
	sigAlgs := make([]jose.SignatureAlgorithm, 0, len(algs))
	for _, alg := range algs {
		sigAlgs = append(sigAlgs, jose.SignatureAlgorithm(alg))
	}
	if leeway <= 0 {
		leeway = jwt.DefaultLeeway
	}

	v := &Verifier{
		keySet: keySet,
		issuer: issuer,
		algs:   sigAlgs,
		leeway: leeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// ParseKeySet decodes a JWKS document.
func ParseKeySet(data []byte) (*jose.JSONWebKeySet, error) {
	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(data, &keySet); err != nil {
		return nil, fmt.Errorf("decoding keyset: %w", err)
	}
	if len(keySet.Keys) == 0 {
		return nil, errors.New("keyset has no keys")
	}

	return &keySet, nil
}

type sessionClaims struct {
	Email        string        `json:"email"`
	UserMetadata auth.Metadata `json:"user_metadata"`
}

// Verify validates the token signature, issuer and lifetime. Failures wrap
// serviceerr.ErrInvalidToken.
func (v *Verifier) Verify(accessToken string) (auth.Session, error) {
	token, err := jwt.ParseSigned(accessToken, v.algs)
	if err != nil {
		return auth.Session{}, errors.Join(serviceerr.ErrInvalidToken, fmt.Errorf("parsing token: %w", err))
	}

	var standardClaims jwt.Claims
	var claims sessionClaims
	if err := token.Claims(v.keySet, &standardClaims, &claims); err != nil {
		return auth.Session{}, errors.Join(serviceerr.ErrInvalidToken, fmt.Errorf("getting JWT claims: %w", err))
	}

	err = standardClaims.ValidateWithLeeway(jwt.Expected{
		Issuer: v.issuer,
		Time:   v.now(),
	}, v.leeway)
	if err != nil {
		return auth.Session{}, errors.Join(serviceerr.ErrInvalidToken, fmt.Errorf("validating claims: %w", err))
	}

	if standardClaims.Subject == "" {
		return auth.Session{}, errors.Join(serviceerr.ErrInvalidToken, errors.New("token has no subject"))
	}

	return auth.Session{
		AccessToken: accessToken,
		User: auth.User{
			ID:       standardClaims.Subject,
			Email:    claims.Email,
			Metadata: claims.UserMetadata,
		},
	}, nil
}
