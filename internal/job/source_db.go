package job

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

const (
	EngineMSSQL = "mssql"
	EngineMySQL = "mysql"
)

const defaultMySQLPort = 3306

// DatabaseConfig drives the database strategy. Engine defaults to mssql.
type DatabaseConfig struct {
	Engine           string `json:"engine,omitempty"`
	Server           string `json:"server"`
	Port             int    `json:"port,omitempty"`
	Database         string `json:"database"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	ConnectionString string `json:"connection_string,omitempty"`
}

func (c *DatabaseConfig) Validate() error {
	switch c.engine() {
	case EngineMSSQL:
		if c.ConnectionString != "" {
			return errors.New("connection_string is only supported by the mysql engine")
		}
	case EngineMySQL:
	default:
		return fmt.Errorf("unsupported engine %q", c.Engine)
	}

	resolved, err := c.Resolve()
	if err != nil {
		return err
	}
	if resolved.Server == "" {
		return errors.New("server is required")
	}
	if resolved.Database == "" {
		return errors.New("database is required")
	}
	if resolved.Port < 0 || resolved.Port > 65535 {
		return fmt.Errorf("port %d out of range", resolved.Port)
	}
	return nil
}

func (c *DatabaseConfig) Kind() Kind { return KindDatabase }

func (c *DatabaseConfig) engine() string {
	if c.Engine == "" {
		return EngineMSSQL
	}
	return c.Engine
}

// Resolve returns a copy with the engine defaulted and, for mysql, the
// connection string expanded into discrete fields. Fields set explicitly
// win over the ones parsed from the DSN.
func (c *DatabaseConfig) Resolve() (DatabaseConfig, error) {
	out := *c
	out.Engine = c.engine()
	if out.Engine != EngineMySQL {
		return out, nil
	}

	if c.ConnectionString != "" {
		dsn, err := mysql.ParseDSN(c.ConnectionString)
		if err != nil {
			return out, fmt.Errorf("invalid connection_string: %w", err)
		}
		host, port := splitAddr(dsn.Addr)
		if out.Server == "" {
			out.Server = host
		}
		if out.Port == 0 {
			out.Port = port
		}
		if out.Database == "" {
			out.Database = dsn.DBName
		}
		if out.Username == "" {
			out.Username = dsn.User
		}
		if out.Password == "" {
			out.Password = dsn.Passwd
		}
		out.ConnectionString = ""
	}
	if out.Port == 0 {
		out.Port = defaultMySQLPort
	}
	return out, nil
}

func splitAddr(addr string) (string, int) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return host, 0
	}
	return host, port
}
