// Package middleware provides the HTTP middleware shared by the admin API.
//
// RequestID tags every request with an ID that flows into logs and audit
// events. AccessLog writes one structured line per request.
//
// LoginLimit throttles sign-in attempts per client address. Two limiters are
// available:
//
//	middleware.NewLocalLimiter(10, 5, 4096)            // token bucket per address, this process only
//	middleware.NewRedisLimiter(client, 10, time.Minute) // fixed window shared by every instance
//
// The Redis limiter fails open: if Redis is unreachable the attempt is
// allowed and the error logged.
package middleware
