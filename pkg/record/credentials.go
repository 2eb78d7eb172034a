package record

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hollandale/creekrun/pkg/store"
)

// Credentials is the blob the runner materializes for the task: database
// connection details, delivered as JSON via the credential file or env
// var. The task holds it only for the duration of one invocation.
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode,omitempty"`
}

// LoadCredentials resolves the credential blob, preferring the env var and
// falling back to the file. Both names match the runner's defaults.
func LoadCredentials(envName, filePath string) (Credentials, error) {
	var raw []byte
	if v := os.Getenv(envName); v != "" {
		raw = []byte(v)
	} else {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return Credentials{}, fmt.Errorf("credentials not found in $%s or %s: %w", envName, filePath, err)
		}
		raw = data
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials: %w", err)
	}
	if creds.Host == "" || creds.User == "" || creds.Database == "" {
		return Credentials{}, fmt.Errorf("credentials missing host, user, or database")
	}
	if creds.Port == 0 {
		creds.Port = 5432
	}
	if creds.SSLMode == "" {
		creds.SSLMode = "disable"
	}
	return creds, nil
}

// StoreConfig converts the credentials to a database config.
func (c Credentials) StoreConfig() store.Config {
	return store.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		SSLMode:  c.SSLMode,
	}
}
