package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// Collection names used by the Mongo catalog and store.
const (
	PermissionsCollection   = "permissions"
	PlansCollection         = "plans"
	SubscriptionsCollection = "subscriptions"
)

type permissionDoc struct {
	Name        string `bson:"_id"`
	ID          string `bson:"permission_id,omitempty"`
	Endpoint    string `bson:"endpoint,omitempty"`
	Description string `bson:"description"`
}

func (d permissionDoc) permission() Permission {
	return Permission{ID: d.ID, Name: d.Name, Endpoint: d.Endpoint, Description: d.Description}
}

type planDoc struct {
	ID          string           `bson:"_id"`
	Name        string           `bson:"name"`
	Description string           `bson:"description"`
	Permissions []string         `bson:"permissions"`
	Limits      map[string]int64 `bson:"limits"`
}

func (d planDoc) plan() quota.Plan {
	return quota.Plan{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		APIPermissions: d.Permissions,
		APILimits:      d.Limits,
	}.Normalize()
}

type subscriptionDoc struct {
	UserID    string     `bson:"_id"`
	PlanID    string     `bson:"plan_id"`
	StartDate time.Time  `bson:"start_date"`
	EndDate   *time.Time `bson:"end_date,omitempty"`
}

var upsert = options.Replace().SetUpsert(true)

// MongoCatalog is a Catalog backed by the permissions and plans collections.
type MongoCatalog struct {
	client      *mongo.Client
	permissions *mongo.Collection
	plans       *mongo.Collection
}

var _ Catalog = (*MongoCatalog)(nil)

// NewMongoCatalog returns a catalog on db.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{
		client:      db.Client(),
		permissions: db.Collection(PermissionsCollection),
		plans:       db.Collection(PlansCollection),
	}
}

// SavePermission validates and upserts p keyed by name.
func (c *MongoCatalog) SavePermission(ctx context.Context, p Permission) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := permissionDoc{Name: p.Name, ID: p.ID, Endpoint: p.Endpoint, Description: p.Description}
	if _, err := c.permissions.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.Name}}, doc, upsert); err != nil {
		return fmt.Errorf("save permission: %w", err)
	}
	return nil
}

// GetPermission returns ErrPermissionNotFound for unknown names.
func (c *MongoCatalog) GetPermission(ctx context.Context, name string) (Permission, error) {
	var doc permissionDoc
	err := c.permissions.FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Permission{}, ErrPermissionNotFound
	}
	if err != nil {
		return Permission{}, fmt.Errorf("get permission: %w", err)
	}
	return doc.permission(), nil
}

// ListPermissions returns all permissions sorted by name.
func (c *MongoCatalog) ListPermissions(ctx context.Context) ([]Permission, error) {
	cur, err := c.permissions.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	var docs []permissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	out := make([]Permission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.permission())
	}
	return out, nil
}

// DeletePermission removes the permission unless a plan grants or limits it.
// The in-use check and the delete run in one transaction.
func (c *MongoCatalog) DeletePermission(ctx context.Context, name string) error {
	return c.inTx(ctx, func(ctx context.Context) error {
		filter := bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "permissions", Value: name}},
			bson.D{{Key: "limits." + name, Value: bson.D{{Key: "$exists", Value: true}}}},
		}}}
		var inUse planDoc
		err := c.plans.FindOne(ctx, filter).Decode(&inUse)
		if err == nil {
			return fmt.Errorf("%w: %q is used by plan %q", ErrPermissionInUse, name, inUse.ID)
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("delete permission: %w", err)
		}

		res, err := c.permissions.DeleteOne(ctx, bson.D{{Key: "_id", Value: name}})
		if err != nil {
			return fmt.Errorf("delete permission: %w", err)
		}
		if res.DeletedCount == 0 {
			return ErrPermissionNotFound
		}
		return nil
	})
}

// SavePlan validates and upserts the plan in one transaction. Every
// referenced permission document is touched inside it, so a concurrent
// DeletePermission of one of them hits a write conflict and is retried
// against the committed plan.
func (c *MongoCatalog) SavePlan(ctx context.Context, plan quota.Plan) error {
	return c.inTx(ctx, func(ctx context.Context) error {
		err := ValidatePlan(plan, func(name string) (bool, error) {
			res, err := c.permissions.UpdateOne(ctx,
				bson.D{{Key: "_id", Value: name}},
				bson.D{{Key: "$currentDate", Value: bson.D{{Key: "referenced_at", Value: true}}}},
			)
			if err != nil {
				return false, fmt.Errorf("save plan: %w", err)
			}
			return res.MatchedCount == 1, nil
		})
		if err != nil {
			return err
		}

		norm := plan.Normalize()
		doc := planDoc{
			ID:          norm.ID,
			Name:        norm.Name,
			Description: norm.Description,
			Permissions: norm.APIPermissions,
			Limits:      norm.APILimits,
		}
		if _, err := c.plans.ReplaceOne(ctx, bson.D{{Key: "_id", Value: norm.ID}}, doc, upsert); err != nil {
			return fmt.Errorf("save plan: %w", err)
		}
		return nil
	})
}

// inTx runs fn in a multi-document transaction. WithTransaction retries fn
// on transient errors such as write conflicts. Requires a replica set.
func (c *MongoCatalog) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// GetPlan returns ErrPlanNotFound for unknown ids.
func (c *MongoCatalog) GetPlan(ctx context.Context, id string) (quota.Plan, error) {
	var doc planDoc
	err := c.plans.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return quota.Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return quota.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return doc.plan(), nil
}

// ListPlans returns all plans sorted by id.
func (c *MongoCatalog) ListPlans(ctx context.Context) ([]quota.Plan, error) {
	cur, err := c.plans.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	out := make([]quota.Plan, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.plan())
	}
	return out, nil
}

// DeletePlan removes the plan document.
func (c *MongoCatalog) DeletePlan(ctx context.Context, id string) error {
	res, err := c.plans.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// MongoStore is a Store backed by the subscriptions collection.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore returns a subscription store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(SubscriptionsCollection)}
}

// Get returns ErrSubscriptionNotFound when the user has none.
func (s *MongoStore) Get(ctx context.Context, userID string) (Subscription, error) {
	var doc subscriptionDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return Subscription{
		UserID:    doc.UserID,
		PlanID:    doc.PlanID,
		StartDate: doc.StartDate.UTC(),
		EndDate:   utcPtr(doc.EndDate),
	}, nil
}

// Save validates sub and upserts it keyed by user id.
func (s *MongoStore) Save(ctx context.Context, sub Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	doc := subscriptionDoc{
		UserID:    sub.UserID,
		PlanID:    sub.PlanID,
		StartDate: sub.StartDate.UTC(),
		EndDate:   utcPtr(sub.EndDate),
	}
	if _, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: sub.UserID}}, doc, upsert); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// Delete returns ErrSubscriptionNotFound when the user has none.
func (s *MongoStore) Delete(ctx context.Context, userID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: userID}})
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
