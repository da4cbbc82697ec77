package sqldb

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLOptions MySQL连接参数
type MySQLOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Charset  string
}

// MySQLDSN 构建 MySQL 连接字符串
func MySQLDSN(opts MySQLOptions) string {
	if opts.Port == 0 {
		opts.Port = 3306
	}
	if opts.Charset == "" {
		opts.Charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		opts.Username, opts.Password, opts.Host, opts.Port, opts.Database, opts.Charset)
}

// OpenMySQL 打开 MySQL 工厂
func OpenMySQL(ctx context.Context, opts MySQLOptions, config *Config) (*Factory, error) {
	if config == nil {
		config = &Config{}
	}
	config.Driver = "mysql"
	config.DSN = MySQLDSN(opts)
	return Open(ctx, config)
}
