package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
)

// parseDatabaseURL applies a DATABASE_URL environment variable on top of the
// individual postgres_* settings. Hosted platforms hand out a single URL, so
// it wins when present.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("parsing DATABASE_URL: unsupported scheme %q", u.Scheme)
	}

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		// No explicit port in the URL.
		host = u.Host
		port = "5432"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("parsing DATABASE_URL port: %w", err)
	}

	c.PostgresHost = host
	c.PostgresPort = portNum
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if len(u.Path) > 1 {
		c.PostgresDBName = u.Path[1:]
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// PostgresConnectionString returns a keyword/value DSN for pgx.
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDBName, c.PostgresSSLMode)
}

// PostgresURL returns a postgres:// URL, used by the migration runner.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, strconv.Itoa(c.PostgresPort)),
		Path:     "/" + c.PostgresDBName,
		RawQuery: "sslmode=" + c.PostgresSSLMode,
	}
	return u.String()
}
