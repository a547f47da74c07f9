package exchange

import (
	"maps"

	"tidexgo/pkg/core"
)

type Option func(*Options)

type Options struct {
	// Limit caps the number of returned items. Zero means venue default.
	Limit int
	// Since is an epoch-millisecond lower bound. Zero means unset.
	Since int64
	// Cursor is a venue-specific pagination position such as a trade id.
	Cursor string
	// Timeframe is a candle width such as "1m" or "1h".
	Timeframe string
	// Params are passed to the endpoint verbatim and override computed ones.
	Params core.Params
}

func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func WithSince(since int64) Option {
	return func(o *Options) {
		o.Since = since
	}
}

func WithCursor(cursor string) Option {
	return func(o *Options) {
		o.Cursor = cursor
	}
}

func WithTimeframe(timeframe string) Option {
	return func(o *Options) {
		o.Timeframe = timeframe
	}
}

// WithParams merges raw endpoint parameters. Later calls win on key clashes.
func WithParams(params core.Params) Option {
	return func(o *Options) {
		if o.Params == nil {
			o.Params = make(core.Params, len(params))
		}
		maps.Copy(o.Params, params)
	}
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
