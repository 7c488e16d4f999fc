package authvalkey_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/property360/usersession/internal/auth"
	"github.com/property360/usersession/internal/auth/authvalkey"
	"github.com/property360/usersession/internal/serviceerr"
)

const issuer = "https://auth.property360.test"

type customClaims struct {
	Email        string        `json:"email,omitempty"`
	UserMetadata auth.Metadata `json:"user_metadata"`
}

type tokenClaims struct {
	standard jwt.Claims
	custom   customClaims
}

type signingKit struct {
	publicKeySet *jose.JSONWebKeySet
	sign         func(claims tokenClaims) string
}

func newSigningKit(t *testing.T) signingKit {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       key,
		KeyID:     "kid1",
		Algorithm: string(jose.RS256),
	}}}
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.RS256,
		Key:       jwks.Keys[0],
	}, nil)
	require.NoError(t, err)

	return signingKit{
		publicKeySet: &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key:       &key.PublicKey,
			KeyID:     "kid1",
			Algorithm: string(jose.RS256),
		}}},
		sign: func(claims tokenClaims) string {
			token, err := jwt.Signed(signer).Claims(claims.standard).Claims(claims.custom).Serialize()
			require.NoError(t, err)
			return token
		},
	}
}

func validClaims(subject string, now time.Time) tokenClaims {
	return tokenClaims{
		standard: jwt.Claims{
			Issuer:   issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
		},
		custom: customClaims{
			Email:        subject + "@example.com",
			UserMetadata: auth.Metadata{Name: "Asha", Phone: "9000000000", Role: "agent"},
		},
	}
}

func TestVerifier_Verify(t *testing.T) {
	kit := newSigningKit(t)
	other := newSigningKit(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expired := validClaims("u1", now.Add(-3*time.Hour))
	wrongIssuer := validClaims("u1", now)
	wrongIssuer.standard.Issuer = "https://evil.test"
	noSubject := validClaims("", now)

	tests := []struct {
		name      string
		token     string
		want      auth.Session
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:  "Valid token",
			token: kit.sign(validClaims("u1", now)),
			want: auth.Session{
				User: auth.User{
					ID:       "u1",
					Email:    "u1@example.com",
					Metadata: auth.Metadata{Name: "Asha", Phone: "9000000000", Role: "agent"},
				},
			},
			assertErr: assert.NoError,
		},
		{
			name:      "Not a JWT",
			token:     "invalid.jwt.token",
			assertErr: assert.Error,
		},
		{
			name:      "Signed by another key",
			token:     other.sign(validClaims("u1", now)),
			assertErr: assert.Error,
		},
		{
			name:      "Expired",
			token:     kit.sign(expired),
			assertErr: assert.Error,
		},
		{
			name:      "Wrong issuer",
			token:     kit.sign(wrongIssuer),
			assertErr: assert.Error,
		},
		{
			name:      "No subject",
			token:     kit.sign(noSubject),
			assertErr: assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := authvalkey.NewVerifier(kit.publicKeySet, issuer, []string{"RS256"}, 0,
				authvalkey.WithClock(func() time.Time { return now }))

			got, err := v.Verify(tt.token)
			if !tt.assertErr(t, err) || err != nil {
				assert.ErrorIs(t, err, serviceerr.ErrInvalidToken)
				return
			}

			tt.want.AccessToken = tt.token
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeySet(t *testing.T) {
	kit := newSigningKit(t)
	data, err := json.Marshal(kit.publicKeySet)
	require.NoError(t, err)

	keySet, err := authvalkey.ParseKeySet(data)
	require.NoError(t, err)
	assert.Len(t, keySet.Keys, 1)

	_, err = authvalkey.ParseKeySet([]byte(`{"keys":[]}`))
	assert.Error(t, err)

	_, err = authvalkey.ParseKeySet([]byte(`not json`))
	assert.Error(t, err)
}
