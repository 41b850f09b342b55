package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/study-spot-reservation/internal/config"
)

// DSN builds the driver connection string. parseTime maps DATETIME to
// time.Time and loc makes the driver read and write naive timestamps in the
// application's time zone.
func DSN(c config.DBConfig, loc *time.Location) string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = loc
	mc.Collation = "utf8mb4_unicode_ci"
	return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, c config.DBConfig, loc *time.Location) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(c, loc))
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping mysql at %s", net.JoinHostPort(c.Host, c.Port))
	}
	return db, nil
}
