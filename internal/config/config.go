// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database   Database   `yaml:"database"`
	ValKey     ValKey     `yaml:"valkey"`
	LocalStore LocalStore `yaml:"localStore"`
	Session    Session    `yaml:"session"`
	Provider   Provider   `yaml:"provider"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// Database is the remote profile store.
type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port" default:"5432"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	// SSLMode is passed through as sslmode when set.
	SSLMode        string        `yaml:"sslMode"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
	Prefix    string              `yaml:"prefix" default:"usersession"`
}

type LocalStoreDriver string

const (
	LocalStoreSQLite LocalStoreDriver = "sqlite"
	LocalStoreValKey LocalStoreDriver = "valkey"
	LocalStoreMemory LocalStoreDriver = "memory"
)

// LocalStore is the durable store mirroring the session caches.
type LocalStore struct {
	Driver LocalStoreDriver `yaml:"driver" default:"sqlite"`
	// Path of the SQLite database file.
	Path string `yaml:"path" default:"usersession.db"`
}

type Session struct {
	RecentlyViewedCapacity int  `yaml:"recentlyViewedCapacity" default:"5"`
	MirrorCurrentUser      bool `yaml:"mirrorCurrentUser"`
}

// Provider configures verification of the auth service's access tokens.
type Provider struct {
	Issuer     string              `yaml:"issuer"`
	JWKS       commoncfg.SourceRef `yaml:"jwks"`
	Algorithms []string            `yaml:"algorithms" default:"[\"RS256\"]"`
	Leeway     time.Duration       `yaml:"leeway" default:"1m"`
}
