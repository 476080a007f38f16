package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/config"
)

const DatabasePingTimeout = 10

type Database struct {
	Pool *pgxpool.Pool
	log  *zerolog.Logger
}

// queryLogger logs every statement at debug level.
type queryLogger struct {
	log *zerolog.Logger
}

type queryStartKey struct{}

func (q *queryLogger) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	_ pgx.TraceQueryStartData,
) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (q *queryLogger) TraceQueryEnd(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	ev := q.log.Debug()
	if data.Err != nil {
		ev = q.log.Warn().Err(data.Err)
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		ev = ev.Dur("duration", time.Since(start))
	}
	ev.Str("command", data.CommandTag.String()).Msg("query finished")
}

// DSN builds the connection string for conf.
func DSN(conf config.DbConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.User, conf.Password),
		Host:     net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)),
		Path:     "/" + conf.Name,
		RawQuery: url.Values{"sslmode": {conf.SSLMode}}.Encode(),
	}
	return u.String()
}

func New(conf *config.Config, log *zerolog.Logger) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(DSN(conf.Db))

	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pgxPoolConfig.ConnConfig.RuntimeParams["application_name"] = "kodanaliz"
	pgxPoolConfig.ConnConfig.Tracer = &queryLogger{log: log}

	pgxPoolConfig.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		return dialer.DialContext(ctx, network, addr)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)

	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("database connection established")

	return &Database{Pool: pool, log: log}, nil
}

func (db *Database) Close() error {
	db.log.Info().Msg("Closing database connection pool")
	db.Pool.Close()
	return nil
}
