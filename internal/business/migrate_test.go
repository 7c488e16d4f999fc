package business

import (
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"

	"github.com/property360/usersession/internal/config"
)

func TestMigrateMain_InvalidDatabaseConfig(t *testing.T) {
	missing := commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}}
	embedded := func(v string) commoncfg.SourceRef {
		return commoncfg.SourceRef{Source: "embedded", Value: v}
	}

	tests := []struct {
		name string
		db   config.Database
	}{
		{
			name: "host ref",
			db:   config.Database{Host: missing, User: embedded("user"), Password: embedded("pass")},
		},
		{
			name: "user ref",
			db:   config.Database{Host: embedded("localhost"), User: missing, Password: embedded("pass")},
		},
		{
			name: "password ref",
			db:   config.Database{Host: embedded("localhost"), User: embedded("user"), Password: missing},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.db.Port = "5432"
			tt.db.Name = "profiles"

			err := MigrateMain(t.Context(), &config.Config{Database: tt.db})
			assert.ErrorContains(t, err, "building the profile store DSN")
		})
	}
}
