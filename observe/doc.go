// Package observe connects resilience primitives to logging and metrics.
//
// Each primitive reports through a single OnEvent callback. This package
// provides ready-made callbacks: slog-based event loggers, OpenTelemetry
// instruments, and Prometheus collectors that read Metrics snapshots.
// Fanout combines several callbacks into one:
//
//	ins, _ := observe.NewInstruments(otel.Meter("faultkit"))
//	cb := circuitbreaker.New("backend", circuitbreaker.Config{
//	    OnEvent: observe.Fanout(
//	        observe.CircuitBreakerLogger(logger),
//	        ins.CircuitBreaker(),
//	    ),
//	})
package observe
