package util

import (
	"context"
	"sync/atomic"

	"gorm.io/gorm"
)

type queryCounterKey struct{}

// WithQueryCounter returns a context carrying a fresh per-request query
// counter. The counter is request-local state: concurrent requests each carry
// their own and never observe each other's activity.
func WithQueryCounter(ctx context.Context) (context.Context, *atomic.Int64) {
	counter := &atomic.Int64{}
	return context.WithValue(ctx, queryCounterKey{}, counter), counter
}

// QueryCounterFrom returns the counter carried by ctx, or nil.
func QueryCounterFrom(ctx context.Context) *atomic.Int64 {
	counter, _ := ctx.Value(queryCounterKey{}).(*atomic.Int64)
	return counter
}

// QueryCounter is a GORM plugin that increments the context-held counter
// after every executed statement. Statements run with a context that carries
// no counter are ignored.
type QueryCounter struct{}

func (QueryCounter) Name() string {
	return "api_sentinel:query_counter"
}

func (QueryCounter) Initialize(db *gorm.DB) error {
	count := func(tx *gorm.DB) {
		if tx.Statement == nil || tx.Statement.Context == nil {
			return
		}
		if counter := QueryCounterFrom(tx.Statement.Context); counter != nil {
			counter.Add(1)
		}
	}

	if err := db.Callback().Query().After("gorm:query").Register("api_sentinel:count_query", count); err != nil {
		return err
	}
	if err := db.Callback().Create().After("gorm:create").Register("api_sentinel:count_create", count); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("api_sentinel:count_update", count); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:delete").Register("api_sentinel:count_delete", count); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("api_sentinel:count_row", count); err != nil {
		return err
	}
	return db.Callback().Raw().After("gorm:raw").Register("api_sentinel:count_raw", count)
}
