// Package bootstrap wires the gateway, stores and tool surface from config.
// Every binary builds the same stack; only the transport differs.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/marriott"
	"marriott_mcp/internal/adapters/memory"
	redisad "marriott_mcp/internal/adapters/redis"
	"marriott_mcp/internal/app"
	"marriott_mcp/internal/domain"
	"marriott_mcp/internal/mcp"
	"marriott_mcp/internal/shared"
	mysqlrepo "marriott_mcp/internal/storage/mysql"
)

const ServerName = "hotel-mcp"

const pingTimeout = 5 * time.Second

type Stack struct {
	Server *mcp.Server
	Tools  *app.ToolService
	// nil when MYSQL_DSN is unset
	Audit domain.SearchAuditLog

	closers []func() error
}

// Build connects the optional stores and registers the tools. Configured
// stores that cannot be reached are an error, not a silent downgrade.
func Build(ctx context.Context, cfg shared.Config, version string) (*Stack, error) {
	st := &Stack{}

	gw, err := marriott.New(marriott.Config{
		BaseURL:     cfg.MarriottBase,
		Timeout:     cfg.UpstreamTimeout,
		RPS:         cfg.UpstreamRPS,
		MaxAttempts: cfg.UpstreamMaxAttempts,
		StepDelay:   cfg.RatesStepDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	var store domain.DiscoveryStore
	if cfg.RedisAddr != "" {
		rs := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.SessionTTL)
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := rs.Ping(pctx)
		cancel()
		if err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		st.closers = append(st.closers, rs.Close)
		store = rs
		log.Info().Str("addr", cfg.RedisAddr).Msg("discovery sessions in redis")
	} else {
		store = memory.NewSessionStore(cfg.SessionTTL)
		log.Info().Msg("discovery sessions in memory")
	}

	opts := []app.Option{}
	if cfg.MySQLDSN != "" {
		dsn, err := auditDSN(cfg.MySQLDSN)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("mysql dsn: %w", err)
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pctx)
		cancel()
		if err != nil {
			_ = db.Close()
			st.Close()
			return nil, fmt.Errorf("mysql ping: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		repo := mysqlrepo.New(db)
		st.Audit = repo
		opts = append(opts, app.WithAuditLog(repo))
		log.Info().Msg("search audit log enabled")
	}

	norm := app.NewNormalizer(cfg.AssetOrigin, cfg.BookingOrigin, cfg.FacetBucketCap)
	st.Tools = app.NewToolService(gw, app.NewDiscoveryGuard(store), norm, cfg.PageSize, opts...)

	reg := mcp.NewRegistry()
	if err := mcp.RegisterTools(reg, st.Tools); err != nil {
		st.Close()
		return nil, err
	}
	info := mcp.Info{Name: ServerName, Version: version, Instructions: mcp.Instructions}
	st.Server = mcp.NewServer(info, reg, mcp.NewResources(cfg.WidgetDir))
	return st, nil
}

// auditDSN forces time scanning in UTC; the audit repo reads created_at as time.Time.
func auditDSN(raw string) (string, error) {
	c, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", err
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

// Close releases stores in reverse order of acquisition.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
