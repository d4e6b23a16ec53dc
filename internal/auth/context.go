package auth

import "context"

type contextKey struct{ name string }

var subjectKey = contextKey{"auth.subject"}

// WithSubject returns a context carrying the authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject returns the authenticated subject for this request, or "" and
// false when no identity was established.
func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}
