package usecase

import (
	"time"

	"github.com/rbroggi/racketbuddy/internal/core/ports"
)

// OptArgs are the optional arguments shared by the services of this package.
type OptArgs = func(*optionals)

type optionals struct {
	nowFunc func() time.Time
	sender  ports.Sender
}

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) OptArgs {
	return func(o *optionals) {
		o.nowFunc = nowFunc
	}
}

// WithSender publishes the activities of the service through sender.
func WithSender(sender ports.Sender) OptArgs {
	return func(o *optionals) {
		o.sender = sender
	}
}

func buildOptionals(optArgs []OptArgs) optionals {
	o := optionals{nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(&o)
	}
	return o
}
