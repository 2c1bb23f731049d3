package model

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type NotificationType string

const (
	NotificationStatus  NotificationType = "status"
	NotificationMention NotificationType = "mention"
)

// Notification is the event handed to the external delivery layer. The core
// raises it; rendering and push are collaborator concerns.
type Notification struct {
	RecipientID string           `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	ActivityID  string           `json:"activity_id"`
	AuthorID    string           `json:"author_id"`
	CreatedOn   int64            `json:"created_on"`
}

// NotificationPreference unifies the notify flags scattered across follow,
// list and circle records behind one (kind, recipient, source) lookup.
type NotificationPreference struct {
	Kind        RelationKind
	RecipientID string
	SourceID    string
	Notify      bool
}

const (
	NotifyKindFollow RelationKind = "follow"
	NotifyKindList   RelationKind = "list"
)

// GetNotifyPreference looks up whether recipientID asked to be notified of
// new statuses from sourceID under the given relationship kind. An absent
// flag means silent feed insertion, not an error.
func GetNotifyPreference(ctx context.Context, db *mongo.Database, kind RelationKind, recipientID, sourceID string) (*NotificationPreference, error) {
	pref := &NotificationPreference{Kind: kind, RecipientID: recipientID, SourceID: sourceID}
	switch kind {
	case NotifyKindFollow:
		edge, err := new(Follow).GetEdge(ctx, db, recipientID, sourceID)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return pref, nil
			}
			return nil, err
		}
		pref.Notify = edge.Notify
	case NotifyKindList:
		filter := bson.D{{Key: "_id", Value: sourceID}, {Key: "owner_id", Value: recipientID}, {Key: "is_del", Value: 0}}
		res := db.Collection(new(List).Table()).FindOne(ctx, filter)
		if res.Err() != nil {
			if res.Err() == mongo.ErrNoDocuments {
				return pref, nil
			}
			return nil, res.Err()
		}
		var list List
		if err := res.Decode(&list); err != nil {
			return nil, err
		}
		pref.Notify = list.Notify
	}
	return pref, nil
}
