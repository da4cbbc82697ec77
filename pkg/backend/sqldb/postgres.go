package sqldb

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresOptions PostgreSQL连接参数
type PostgresOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

// PostgresDSN 构建 PostgreSQL 连接字符串
func PostgresDSN(opts PostgresOptions) string {
	if opts.Port == 0 {
		opts.Port = 5432
	}
	if opts.SSLMode == "" {
		opts.SSLMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host, opts.Port, opts.Username, opts.Password, opts.Database, opts.SSLMode)
}

// OpenPostgres 打开 PostgreSQL 工厂
func OpenPostgres(ctx context.Context, opts PostgresOptions, config *Config) (*Factory, error) {
	if config == nil {
		config = &Config{}
	}
	config.Driver = "postgres"
	config.DSN = PostgresDSN(opts)
	return Open(ctx, config)
}
