// Package metrics provides the observability hooks for the address pool.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	svc := pool.New(store, daemon) // NoopRecorder
//	svc := pool.New(store, daemon, pool.WithMetrics(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the supplied registry and
// HTTPHandler exposes that registry for scraping.
package metrics
