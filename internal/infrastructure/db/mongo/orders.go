package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

const collectionOrders = "orders"

// Items are embedded in their order document, so deleting an order removes
// its items in the same write.
type orderDocument struct {
	ID          string         `bson:"_id"`
	Title       string         `bson:"title"`
	Description string         `bson:"description"`
	Status      string         `bson:"status"`
	OwnerID     string         `bson:"owner_id"`
	Items       []itemDocument `bson:"items"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ID       string               `bson:"id"`
	Name     string               `bson:"name"`
	Quantity int                  `bson:"quantity"`
	Price    primitive.Decimal128 `bson:"price"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode price %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode price %s: %w", v, err)
	}
	return d, nil
}

func toItemDocument(it domain.OrderItem) (itemDocument, error) {
	price, err := toDecimal128(it.Price)
	if err != nil {
		return itemDocument{}, err
	}
	return itemDocument{ID: it.ID, Name: it.Name, Quantity: it.Quantity, Price: price}, nil
}

func toOrderDocument(o *domain.Order) (orderDocument, error) {
	items := make([]itemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		doc, err := toItemDocument(it)
		if err != nil {
			return orderDocument{}, err
		}
		items = append(items, doc)
	}
	return orderDocument{
		ID:          o.ID,
		Title:       o.Title,
		Description: o.Description,
		Status:      string(o.Status),
		OwnerID:     o.OwnerID,
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}, nil
}

func (d orderDocument) toDomain() (*domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ID:       it.ID,
			OrderID:  d.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    price,
		})
	}
	return &domain.Order{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      domain.OrderStatus(d.Status),
		OwnerID:     d.OwnerID,
		Items:       items,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toOrderDocument(order)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id}, domain.ErrOrderNotFound)
}

func (r *OrderRepository) FindByItemID(ctx context.Context, itemID string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"items.id": itemID}, domain.ErrItemNotFound)
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M, notFound error) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc orderDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return doc.toDomain()
}

func filterDoc(f ports.OrderFilter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	return filter
}

func (r *OrderRepository) List(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.col.Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, order.ID, bson.M{"$set": bson.M{
		"title":       order.Title,
		"description": order.Description,
		"status":      string(order.Status),
		"updated_at":  order.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) AddItem(ctx context.Context, orderID string, item domain.OrderItem) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toItemDocument(item)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateByID(ctx, orderID, bson.M{"$push": bson.M{"items": doc}})
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) RemoveItem(ctx context.Context, orderID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": orderID, "items.id": itemID},
		bson.M{"$pull": bson.M{"items": bson.M{"id": itemID}}},
	)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *OrderRepository) Count(ctx context.Context, f ports.OrderFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filterDoc(f))
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// TotalValue sums price × quantity over every embedded item on the server.
func (r *OrderRepository) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$multiply", Value: bson.A{"$items.price", "$items.quantity"}},
			}}}},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate total value: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("decode total value: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return fromDecimal128(rows[0].Total)
}

// EnsureIndexes creates necessary indexes on the orders collection.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "items.id", Value: 1}}},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}
