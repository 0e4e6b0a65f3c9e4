package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// Descriptor is the connection description for one store, resolved from
// configuration at startup.
type Descriptor struct {
	Name    string
	Kind    Kind
	Primary bool

	// Path is the database file, sqlite only.
	Path string

	// Network location and credentials for the server engines.
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// Params are extra driver parameters appended to the DSN.
	Params map[string]string
}

// DSN renders the driver-specific connection string.
func (d Descriptor) DSN() (string, error) {
	switch d.Kind {
	case KindSQLite:
		if d.Path == "" {
			return "", fmt.Errorf("store %s: sqlite requires a path", d.Name)
		}
		return d.Path, nil

	case KindMySQL:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = d.addr(3306)
		cfg.DBName = d.Database
		cfg.ParseTime = true
		// Count matched rows, not changed rows, so a same-value UPDATE
		// is not mistaken for a missing record.
		cfg.ClientFoundRows = true
		if len(d.Params) > 0 {
			cfg.Params = make(map[string]string, len(d.Params))
			for k, v := range d.Params {
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN(), nil

	case KindPostgres:
		u := &url.URL{
			Scheme: "postgres",
			Host:   d.addr(5432),
			Path:   "/" + d.Database,
		}
		if d.User != "" {
			u.User = url.UserPassword(d.User, d.Password)
		}
		q := u.Query()
		for k, v := range d.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil

	case KindSQLServer:
		u := &url.URL{
			Scheme: "sqlserver",
			Host:   d.addr(1433),
		}
		if d.User != "" {
			u.User = url.UserPassword(d.User, d.Password)
		}
		q := u.Query()
		q.Set("database", d.Database)
		for k, v := range d.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return "", fmt.Errorf("store %s: unknown engine kind %q", d.Name, d.Kind)
}

// addr joins host and port, falling back to the engine's default port.
func (d Descriptor) addr(defaultPort int) string {
	port := d.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}
