// Package handlers contains the reusable pieces of the HTTP interface that
// do not depend on the portal's routes: health checks, rate limiters and
// generic middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering named checks that are
// executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddOptionalCheck("cache", handlers.NewPingCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Ready {
//	    log.Printf("not ready: %s", status.Message)
//	}
//
// A failing optional check marks the service unhealthy but still ready, so
// a Redis outage degrades caching without taking the portal out of rotation.
//
// # Rate Limiting
//
// Limiter has two implementations: MemoryLimiter for a single process and
// CounterLimiter over a shared WindowCounter such as the Redis cache.
package handlers
