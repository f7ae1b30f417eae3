// Package observability provides OpenTelemetry tracing and metrics for
// service resolution.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	metrics.RecordBuild(ctx, "mailer", observability.StatusOK, duration)
//
// Containers pick the instruments up through di.WithTracer and di.WithMetrics.
package observability
