package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Type         string `yaml:"type" json:"type"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name"`
	// AttachDB is the .MDF file attached on connect for SQL Server LocalDB
	// installs, where the detailing software ships its catalog.
	AttachDB string `yaml:"attach_db" json:"attach_db"`
	DSN      string `yaml:"dsn" json:"dsn"` // optional explicit DSN
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

type BrowserConfig struct {
	PageSize    int    `yaml:"page_size" json:"page_size"`
	SessionFile string `yaml:"session_file" json:"session_file"`
}

type AppConfig struct {
	Database DBConfig      `yaml:"database" json:"database"`
	Server   ServerConfig  `yaml:"server" json:"server"`
	Browser  BrowserConfig `yaml:"browser" json:"browser"`
}

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NormalizeDriver maps common aliases to canonical driver keys.
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver", "localdb":
		return "sqlserver"
	case "godror", "oracle":
		return "godror"
	default:
		return strings.ToLower(d)
	}
}

// BuildDriverAndDSN produces a driver name and DSN string for supported DB
// types.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	// If explicit DSN provided, Type still chooses the driver
	t := NormalizeDriver(db.Type)

	if db.DSN != "" {
		return t, db.DSN, nil
	}

	switch t {
	case "postgres":
		driver = "postgres"
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "mysql":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "sqlite":
		driver = "sqlite"
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", db.DatabaseName)
	case "sqlserver":
		driver = "sqlserver"
		if db.AttachDB != "" {
			// LocalDB attach form: trusted connection against the named
			// instance with the catalog file attached.
			dsn = fmt.Sprintf("sqlserver://%s?database=%s&attachdbfilename=%s",
				db.Host, db.DatabaseName, db.AttachDB)
		} else {
			dsn = fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
				db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
		}
	case "godror":
		driver = "godror"
		// simple EZCONNECT style; may need adjustments per environment
		dsn = fmt.Sprintf("%s/%s@%s:%d/%s",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	default:
		err = fmt.Errorf("unsupported database type: %s", db.Type)
	}
	return
}
