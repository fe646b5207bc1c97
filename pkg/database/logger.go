package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

// gormLogger routes GORM's logging through the context zerolog logger so SQL
// lines carry the request id of the request that issued them.
type gormLogger struct {
	level         logger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a GORM logger backed by pkg/log.
func NewGormLogger(level logger.LogLevel, slowThreshold time.Duration) logger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &gormLogger{level: level, slowThreshold: slowThreshold}
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		l := log.Ctx(ctx)
		l.Info().Str("source", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		l := log.Ctx(ctx)
		l.Warn().Str("source", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		l := log.Ctx(ctx)
		l.Error().Str("source", "gorm").Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	l := log.Ctx(ctx)

	switch {
	case err != nil && g.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound) && !IsDuplicateKey(err):
		sql, rows := fc()
		l.Error().Err(err).Str("source", "gorm").Str("sql", sql).Int64("rows", rows).
			Dur("elapsed", elapsed).Msg("query failed")
	case elapsed > g.slowThreshold && g.level >= logger.Warn:
		sql, rows := fc()
		l.Warn().Str("source", "gorm").Str("sql", sql).Int64("rows", rows).
			Dur("elapsed", elapsed).Msg("slow query")
	case g.level >= logger.Info:
		sql, rows := fc()
		l.Debug().Str("source", "gorm").Str("sql", sql).Int64("rows", rows).
			Dur("elapsed", elapsed).Msg("query")
	}
}
