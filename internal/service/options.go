package service

import "time"

const defaultNoteDebounce = 500 * time.Millisecond

type options struct {
	now          func() time.Time
	noteDebounce time.Duration
}

type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithNoteDebounce sets the quiet period of internal note drafts.
func WithNoteDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.noteDebounce = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:          time.Now,
		noteDebounce: defaultNoteDebounce,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
