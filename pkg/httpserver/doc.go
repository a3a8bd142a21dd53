// Package httpserver runs the notifykit HTTP API with graceful shutdown.
//
//	srv := httpserver.NewFromConfig(cfg, router, httpserver.WithLogger(log))
//	g.Go(srv.Run(ctx))
//
// Start blocks until the context is cancelled, then gives in-flight requests
// up to the shutdown timeout. Signal handling belongs to the caller.
//
// LivenessHandler and ReadinessHandler back /health/live and /health/ready;
// readiness runs named checks such as the Mongo and Redis pings and reports
// each one.
package httpserver
