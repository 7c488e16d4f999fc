package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

var ErrNoDatabaseName = errors.New("profile store database name is not set")

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// DSN resolves the credential references and returns the profile store's
// keyword/value connection string, accepted by both pgxpool and the pgx
// database/sql driver.
func (d Database) DSN() (string, error) {
	if d.Name == "" {
		return "", ErrNoDatabaseName
	}

	host, err := commoncfg.LoadValueFromSourceRef(d.Host)
	if err != nil {
		return "", fmt.Errorf("loading profile store host: %w", err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(d.User)
	if err != nil {
		return "", fmt.Errorf("loading profile store user: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(d.Password)
	if err != nil {
		return "", fmt.Errorf("loading profile store password: %w", err)
	}

	port := d.Port
	if port == "" {
		port = "5432"
	}

	pairs := [][2]string{
		{"host", string(host)},
		{"port", port},
		{"dbname", d.Name},
		{"user", string(user)},
		{"password", string(password)},
	}
	if d.SSLMode != "" {
		pairs = append(pairs, [2]string{"sslmode", d.SSLMode})
	}
	if d.ConnectTimeout > 0 {
		seconds := max(int(d.ConnectTimeout.Seconds()), 1)
		pairs = append(pairs, [2]string{"connect_timeout", strconv.Itoa(seconds)})
	}

	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(dsnValue(kv[1]))
	}

	return b.String(), nil
}

// dsnValue quotes v when it is empty or holds a space, quote or backslash.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}
