package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/schema"
)

type options struct {
	catalog   *schema.Catalog
	logger    *zap.Logger
	observers []resource.Observer
}

// Option configures a Runtime.
type Option func(*options)

// WithCatalog supplies the declarations instead of asking the library's
// describe entry point.
func WithCatalog(c *schema.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithLogger sets the logger for calls and handle lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver subscribes o to the handle registry's lifecycle events.
func WithObserver(obs resource.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}
