package mq

import (
	"context"
	"encoding/json"

	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/messaging"
	"github.com/schoolhub/schoolhub/internal/shared/event"
	"github.com/schoolhub/schoolhub/internal/school/usecase"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishSchoolChanged(ctx context.Context, msg usecase.SchoolChangedEvent) error {
	ctx, span := m.ins.Tracer("school.outbound.mq").Start(ctx, "PublishSchoolChanged")
	defer span.End()

	body, err := json.Marshal(event.SchoolChangedMessage{
		Action:   msg.Action,
		SchoolID: msg.SchoolID,
		Name:     msg.Name,
		ActorID:  msg.ActorID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.SchoolChangedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.Action),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
