package business

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/property360/usersession/internal/auth/authmock"
	"github.com/property360/usersession/internal/config"
	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/profile/profilemock"
	"github.com/property360/usersession/internal/serviceerr"
	"github.com/property360/usersession/internal/storage"
	"github.com/property360/usersession/internal/storage/storagemem"
	"github.com/property360/usersession/internal/storage/storagesqlite"
	"github.com/property360/usersession/internal/storage/storagevalkey"
	"github.com/property360/usersession/internal/usersession"
)

func TestNewLocalStoreBackend(t *testing.T) {
	tests := []struct {
		name      string
		driver    config.LocalStoreDriver
		assertErr assert.ErrorAssertionFunc
		wantType  storage.Backend
	}{
		{
			name:      "sqlite",
			driver:    config.LocalStoreSQLite,
			assertErr: assert.NoError,
			wantType:  &storagesqlite.Backend{},
		},
		{
			name:      "sqlite by default",
			driver:    "",
			assertErr: assert.NoError,
			wantType:  &storagesqlite.Backend{},
		},
		{
			name:      "valkey",
			driver:    config.LocalStoreValKey,
			assertErr: assert.NoError,
			wantType:  &storagevalkey.Backend{},
		},
		{
			name:      "memory",
			driver:    config.LocalStoreMemory,
			assertErr: assert.NoError,
			wantType:  &storagemem.Backend{},
		},
		{
			name:   "unknown driver",
			driver: "etcd",
			assertErr: func(t assert.TestingT, err error, _ ...any) bool {
				return assert.ErrorIs(t, err, errUnknownLocalStore)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				LocalStore: config.LocalStore{
					Driver: tt.driver,
					Path:   filepath.Join(t.TempDir(), "usersession.db"),
				},
				ValKey: config.ValKey{Prefix: "usersession"},
			}

			backend, closeFn, err := newLocalStoreBackend(t.Context(), cfg, nil)
			if !tt.assertErr(t, err) || err != nil {
				return
			}
			defer closeFn()

			assert.IsType(t, tt.wantType, backend)
		})
	}
}

func TestNewVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     "kid1",
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
	require.NoError(t, err)

	tests := []struct {
		name      string
		jwks      commoncfg.SourceRef
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:      "embedded key set",
			jwks:      commoncfg.SourceRef{Source: "embedded", Value: string(jwks)},
			assertErr: assert.NoError,
		},
		{
			name:      "missing file",
			jwks:      commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/jwks.json"}},
			assertErr: assert.Error,
		},
		{
			name:      "not a key set",
			jwks:      commoncfg.SourceRef{Source: "embedded", Value: "{}"},
			assertErr: assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newVerifier(config.Provider{
				Issuer:     "https://auth.property360.test",
				JWKS:       tt.jwks,
				Algorithms: []string{"RS256"},
			})
			if !tt.assertErr(t, err) || err != nil {
				return
			}
			assert.NotNil(t, v)
		})
	}
}

func TestNewValkeyClient_InvalidRefs(t *testing.T) {
	missing := commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}}
	embedded := commoncfg.SourceRef{Source: "embedded", Value: "value"}

	tests := []struct {
		name    string
		cfg     config.ValKey
		wantErr string
	}{
		{name: "host", cfg: config.ValKey{Host: missing, User: embedded, Password: embedded}, wantErr: "loading valkey host"},
		{name: "user", cfg: config.ValKey{Host: embedded, User: missing, Password: embedded}, wantErr: "loading valkey username"},
		{name: "password", cfg: config.ValKey{Host: embedded, User: embedded, Password: missing}, wantErr: "loading valkey password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newValkeyClient(tt.cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMetricsReporter(t *testing.T) {
	r, err := newMetricsReporter(&config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{Name: "test-app"},
		},
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		r.Report(t.Context(), errors.New("profile store unavailable"))
	})
}

func TestServe_UnmountsWhenMountFails(t *testing.T) {
	provider := authmock.NewProvider(authmock.WithSubscribeError(errors.New("auth service unavailable")))
	facade := usersession.New(
		storage.New(storagemem.NewBackend()),
		provider,
		profile.NewResolver(profilemock.NewInMemRepository()),
	)

	err := serve(t.Context(), &config.Config{}, facade)
	assert.ErrorContains(t, err, "mounting the user session")

	_, err = facade.Snapshot()
	assert.ErrorIs(t, err, serviceerr.ErrNotInitialised, "a failed mount must leave the facade unmounted")
	assert.Equal(t, 0, provider.TListeners())
}
