package mq

import (
	"context"
	"encoding/json"

	"github.com/schoolhub/schoolhub/internal/auth/usecase"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/messaging"
	"github.com/schoolhub/schoolhub/internal/shared/event"
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

func (m *Messaging) PublishUserFirstLogin(ctx context.Context, msg usecase.UserFirstLoginEvent) error {
	ctx, span := m.ins.Tracer("auth.outbound.mq").Start(ctx, "PublishUserFirstLogin")
	defer span.End()

	body, err := json.Marshal(event.UserFirstLoginMessage{
		UserID: msg.UserID,
		Email:  msg.Email,
		Name:   msg.Name,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.UserFirstLoginDestination, messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
