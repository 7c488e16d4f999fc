package business

import (
	"context"

	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/property360/usersession/internal/config"
	"github.com/property360/usersession/internal/synchronizer"
)

// metricsReporter logs session resolution failures and counts them.
type metricsReporter struct {
	synchronizer.LogReporter

	failures metric.Int64Counter
	attrs    metric.MeasurementOption
}

func newMetricsReporter(cfg *config.Config) (*metricsReporter, error) {
	meter := otel.Meter(
		"usersession/"+cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	failures, err := meter.Int64Counter(
		"usersession.sync.failures",
		metric.WithDescription("Session resolutions that ended unauthenticated because of an error"),
		metric.WithUnit("failure"),
	)
	if err != nil {
		return nil, oops.In("Session Synchronizer").Wrapf(err, "creating sync failures meter")
	}

	return &metricsReporter{
		failures: failures,
		attrs:    metric.WithAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	}, nil
}

func (r *metricsReporter) Report(ctx context.Context, err error) {
	r.LogReporter.Report(ctx, err)
	r.failures.Add(ctx, 1, r.attrs)
}
