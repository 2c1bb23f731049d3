package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"fedipush-backend/internal/core"
	"fedipush-backend/internal/model"
	"fedipush-backend/pkg/notify"
)

var (
	_ core.NotifyService = (*gatewayNotifyServant)(nil)
	_ core.NotifyService = (*logNotifyServant)(nil)
)

// gatewayNotifyServant forwards raised notifications to the push relay.
type gatewayNotifyServant struct {
	gateway *notify.Gateway
}

func newGatewayNotifyService(gateway *notify.Gateway) core.NotifyService {
	return &gatewayNotifyServant{gateway: gateway}
}

func (s *gatewayNotifyServant) Raise(ctx context.Context, notification *model.Notification) error {
	return s.gateway.Notify(ctx, notify.PushNotifyRequest{
		Recipient: notification.RecipientID,
		Type:      string(notification.Type),
		Activity:  notification.ActivityID,
		Author:    notification.AuthorID,
		CreatedOn: notification.CreatedOn,
	})
}

// logNotifyServant is the sink used when no relay is configured.
type logNotifyServant struct{}

func newLogNotifyService() core.NotifyService {
	return &logNotifyServant{}
}

func (s *logNotifyServant) Raise(_ context.Context, notification *model.Notification) error {
	logrus.WithFields(logrus.Fields{
		"recipient": notification.RecipientID,
		"type":      notification.Type,
		"activity":  notification.ActivityID,
	}).Debug("notification raised")
	return nil
}
