package backend

import (
	"fmt"
	"time"

	"sorpes/internal/config"
	"sorpes/internal/core"
)

// Config holds what the factory needs to build the backends.
type Config struct {
	SQLiteDBPath string

	Remote        RemoteType
	Sync          SyncMode
	MirrorTimeout time.Duration

	BlobServiceURL string
	BlobContainer  string
	BlobName       string
	// Seed files single-month remote documents under this key.
	Seed core.MonthKey

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, seed core.MonthKey) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		Remote:        RemoteType(appConfig.RemoteBackend),
		Sync:          SyncMode(appConfig.SyncMode),
		MirrorTimeout: appConfig.MirrorTimeout,

		BlobServiceURL: appConfig.BlobServiceURL,
		BlobContainer:  appConfig.BlobContainer,
		BlobName:       appConfig.BlobName,
		Seed:           seed,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	return c, c.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote backend: %s", c.Remote)
	}
	if !c.Sync.IsValid() {
		return fmt.Errorf("invalid sync mode: %s", c.Sync)
	}
	if c.Remote == RemoteBlob && c.BlobServiceURL == "" {
		return fmt.Errorf("blob service URL is required for blob remote")
	}
	if c.Sync == SyncQueue && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required for queue sync")
	}
	return nil
}
