package gormdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
)

type logger struct {
	log logutil.Log
}

// Print receives gorm's log values: level, source, then either
// (duration, sql, vars, rows) for sql level or free-form messages.
func (lg logger) Print(values ...interface{}) {
	if len(values) < 2 {
		return
	}

	level, _ := values[0].(string)
	if level != "sql" || len(values) < 5 {
		lg.log.Warnf("%s", strings.TrimSpace(fmt.Sprint(values[2:]...)))
		return
	}

	duration, _ := values[2].(time.Duration)
	query, _ := values[3].(string)
	lg.log.Debugf("sql", "[%.2fms] %s %v", float64(duration.Nanoseconds()/1e4)/100.0, query, values[4])
}
