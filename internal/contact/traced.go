package contact

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedRelay records every send as a span.
type TracedRelay struct {
	Next   Relay
	Tracer trace.Tracer
}

func (r TracedRelay) Send(ctx context.Context, serviceID, templateID string, fields map[string]string, publicKey string) error {
	ctx, span := r.Tracer.Start(ctx, "contact.relay.send", trace.WithAttributes(
		attribute.String("relay.service_id", serviceID),
		attribute.String("relay.template_id", templateID),
	))
	defer span.End()

	if err := r.Next.Send(ctx, serviceID, templateID, fields, publicKey); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "relay send failed")
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
