package aim

import aif "github.com/goliatone/go-aif"

type Option func(*AIM)

func WithLogger(logger aif.Logger) Option {
	return func(a *AIM) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithStrictTransitions rejects verbs applied from states that make no
// sense, e.g. Resume before Start. Without it every verb is accepted.
func WithStrictTransitions() Option {
	return func(a *AIM) {
		a.strict = true
	}
}

func WithHooks(hooks ...Hook) Option {
	return func(a *AIM) {
		a.hooks = append(a.hooks, hooks...)
	}
}

func WithHookFailureMode(mode HookFailureMode) Option {
	return func(a *AIM) {
		a.hookMode = normalizeHookFailureMode(mode)
	}
}
