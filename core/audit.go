package core

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AuthEventLogger records successful authentications.
// Implementations should be non-blocking and best-effort.
type AuthEventLogger interface {
	LogAuthentication(ctx context.Context, p Principal, method, route, ip, userAgent string) error
}

// LogrusAuthEvents writes authentication events as structured log entries.
type LogrusAuthEvents struct {
	Log logrus.FieldLogger
}

func (l LogrusAuthEvents) LogAuthentication(_ context.Context, p Principal, method, route, ip, userAgent string) error {
	log := l.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"event":       "authenticated",
		"user_id":     p.ID,
		"role":        string(p.Role),
		"application": p.Application,
		"method":      method,
		"route":       route,
		"ip":          ip,
		"user_agent":  userAgent,
	}).Debug("auth event")
	return nil
}
