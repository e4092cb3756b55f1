package latitude

import "context"

// Instrumentation observes client operations. StartSpan is called when an
// operation begins; the returned function is called once with its outcome.
// Span names are "latitude.run", "latitude.chat", "latitude.attach" and
// "latitude.tool".
type Instrumentation interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
}

func startSpan(ctx context.Context, in Instrumentation, name string, attrs map[string]any) (context.Context, func(error)) {
	if in == nil {
		return ctx, func(error) {}
	}
	return in.StartSpan(ctx, name, attrs)
}
