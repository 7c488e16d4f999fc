//go:build integration

package integration_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/go-jose/go-jose/v4"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/property360/usersession/internal/config"
	"github.com/property360/usersession/internal/dbtest/postgrestest"
	"github.com/property360/usersession/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config
	SigningKey     *rsa.PrivateKey

	closeFuncs []closeFunc
}

// initInfra prepares a working directory for one process. The process reads
// $PWD/config.yaml, so every test runs it in its own subdirectory.
func initInfra(t *testing.T, name string) *infraStat {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	istat := &infraStat{
		Procdir: filepath.Join(wd, name+"-test"),
	}
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	require.NoError(t, os.MkdirAll(istat.Procdir, fs.ModePerm), "failed to create a dir for the process")
	require.NoError(t, os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm), "failed to write config file")
	require.NoError(t, commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir), "failed to load config")

	istat.Cfg.HTTP.Address = "unix://" + filepath.Join(istat.Procdir, name+".sock")
	istat.Cfg.LocalStore.Path = filepath.Join(istat.Procdir, "usersession.db")

	return istat
}

func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.Cfg.Database = postgrestest.Database(pgPort)
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.Cfg.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: net.JoinHostPort("localhost", vkPort.Port())}
	istat.Cfg.ValKey.User = commoncfg.SourceRef{Source: "embedded", Value: ""}
	istat.Cfg.ValKey.Password = commoncfg.SourceRef{Source: "embedded", Value: ""}
}

// PrepareProvider generates a signing key and points the provider at its
// public key set.
func (istat *infraStat) PrepareProvider(t *testing.T) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	istat.SigningKey = key

	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     "integration",
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
	require.NoError(t, err)

	istat.Cfg.Provider.JWKS = commoncfg.SourceRef{Source: "embedded", Value: string(jwks)}
}

// PrepareConfig writes the adjusted config into ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	configFile, err := os.Create(istat.ConfigFilePath)
	require.NoError(t, err, "failed to create config file")
	defer configFile.Close()

	require.NoError(t, yaml.NewEncoder(configFile).Encode(istat.Cfg), "failed to write config")
}

func (istat *infraStat) Close(ctx context.Context) {
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
