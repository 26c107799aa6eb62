package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collItems          = "menu_items"
	collCategories     = "categories"
	collDietaryTags    = "dietary_tags"
	collVariationTypes = "variation_types"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type optionDoc struct {
	Name       string               `bson:"name"`
	Multiplier primitive.Decimal128 `bson:"multiplier"`
}

type variationDoc struct {
	TypeID  string      `bson:"type_id"`
	Name    string      `bson:"name"`
	Options []optionDoc `bson:"options"`
}

type feeDoc struct {
	Area string               `bson:"area"`
	Fee  primitive.Decimal128 `bson:"fee"`
}

type itemDoc struct {
	ID           string               `bson:"_id"`
	Name         string               `bson:"name"`
	Description  string               `bson:"description,omitempty"`
	ImageURL     string               `bson:"image_url,omitempty"`
	Price        primitive.Decimal128 `bson:"price"`
	CategoryID   string               `bson:"category_id"`
	DietaryTags  []string             `bson:"dietary_tags,omitempty"`
	Variations   []variationDoc       `bson:"variations,omitempty"`
	DeliveryFees []feeDoc             `bson:"delivery_fees,omitempty"`
	Available    bool                 `bson:"available"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

type categoryDoc struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	Position int    `bson:"position"`
}

type tagDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
	Code string `bson:"code"`
}

type variationTypeDoc struct {
	ID      string      `bson:"_id"`
	Name    string      `bson:"name"`
	Options []optionDoc `bson:"options"`
}

type MongoStore struct {
	db  *mongo.Database
	log *slog.Logger
}

func NewMongoStore(db *mongo.Database, log *slog.Logger) *MongoStore {
	return &MongoStore{db: db, log: log}
}

func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collItems).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "dietary_tags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create item indexes: %w", err)
	}
	_, err = s.db.Collection(collDietaryTags).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create dietary tag index: %w", err)
	}
	return nil
}

func (s *MongoStore) ListItems(ctx context.Context) ([]MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category_id", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.db.Collection(collItems).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer cur.Close(ctx)

	var out []MenuItem
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			s.log.Warn("skipping undecodable menu item", "error", err)
			continue
		}
		item, err := doc.toDomain()
		if err != nil {
			s.log.Warn("skipping malformed menu item", "id", doc.ID, "error", err)
			continue
		}
		out = append(out, item)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("menu item cursor: %w", err)
	}
	return out, nil
}

func (s *MongoStore) GetItem(ctx context.Context, id string) (MenuItem, error) {
	var doc itemDoc
	err := s.db.Collection(collItems).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return MenuItem{}, ErrItemNotFound
		}
		return MenuItem{}, fmt.Errorf("failed to get menu item: %w", err)
	}
	return doc.toDomain()
}

func (s *MongoStore) UpsertItem(ctx context.Context, item MenuItem) error {
	doc, err := itemToDoc(item)
	if err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collItems).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert menu item: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.Collection(collItems).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *MongoStore) ListCategories(ctx context.Context) ([]Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "name", Value: 1}})
	var docs []categoryDoc
	if err := s.findAll(ctx, collCategories, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(docs))
	for _, d := range docs {
		c := Category{ID: d.ID, Name: d.Name, Position: d.Position}
		if err := c.Validate(); err != nil {
			s.log.Warn("skipping malformed category", "id", d.ID, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MongoStore) UpsertCategory(ctx context.Context, c Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	doc := categoryDoc{ID: c.ID, Name: c.Name, Position: c.Position}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collCategories).ReplaceOne(ctx, bson.M{"_id": c.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

func (s *MongoStore) ListDietaryTags(ctx context.Context) ([]DietaryTag, error) {
	var docs []tagDoc
	if err := s.findAll(ctx, collDietaryTags, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}), &docs); err != nil {
		return nil, err
	}
	out := make([]DietaryTag, 0, len(docs))
	for _, d := range docs {
		t := DietaryTag{ID: d.ID, Name: d.Name, Code: d.Code}
		if err := t.Validate(); err != nil {
			s.log.Warn("skipping malformed dietary tag", "id", d.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *MongoStore) ListVariationTypes(ctx context.Context) ([]VariationType, error) {
	var docs []variationTypeDoc
	if err := s.findAll(ctx, collVariationTypes, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}), &docs); err != nil {
		return nil, err
	}
	out := make([]VariationType, 0, len(docs))
	for _, d := range docs {
		opts, err := optionsToDomain(d.Options)
		if err != nil {
			s.log.Warn("skipping malformed variation type", "id", d.ID, "error", err)
			continue
		}
		v := VariationType{ID: d.ID, Name: d.Name, Options: opts}
		if err := v.Validate(); err != nil {
			s.log.Warn("skipping malformed variation type", "id", d.ID, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *MongoStore) findAll(ctx context.Context, coll string, opts *options.FindOptions, out any) error {
	cur, err := s.db.Collection(coll).Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", coll, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", coll, err)
	}
	return nil
}

func (d itemDoc) toDomain() (MenuItem, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return MenuItem{}, &RecordError{Kind: "menu item", ID: d.ID, Reason: "price: " + err.Error()}
	}
	item := MenuItem{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Price:       price,
		CategoryID:  d.CategoryID,
		DietaryTags: d.DietaryTags,
		Available:   d.Available,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, v := range d.Variations {
		opts, err := optionsToDomain(v.Options)
		if err != nil {
			return MenuItem{}, &RecordError{Kind: "menu item", ID: d.ID, Reason: v.Name + ": " + err.Error()}
		}
		item.Variations = append(item.Variations, ItemVariation{TypeID: v.TypeID, Name: v.Name, Options: opts})
	}
	for _, f := range d.DeliveryFees {
		fee, err := fromDecimal128(f.Fee)
		if err != nil {
			return MenuItem{}, &RecordError{Kind: "menu item", ID: d.ID, Reason: "fee " + f.Area + ": " + err.Error()}
		}
		item.DeliveryFees = append(item.DeliveryFees, AreaFee{Area: f.Area, Fee: fee})
	}
	if err := item.Validate(); err != nil {
		return MenuItem{}, err
	}
	return item, nil
}

func itemToDoc(m MenuItem) (itemDoc, error) {
	if err := m.Validate(); err != nil {
		return itemDoc{}, err
	}
	price, err := toDecimal128(m.Price)
	if err != nil {
		return itemDoc{}, err
	}
	doc := itemDoc{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		Price:       price,
		CategoryID:  m.CategoryID,
		DietaryTags: m.DietaryTags,
		Available:   m.Available,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, v := range m.Variations {
		vd := variationDoc{TypeID: v.TypeID, Name: v.Name}
		for _, o := range v.Options {
			mul, err := toDecimal128(o.Multiplier)
			if err != nil {
				return itemDoc{}, err
			}
			vd.Options = append(vd.Options, optionDoc{Name: o.Name, Multiplier: mul})
		}
		doc.Variations = append(doc.Variations, vd)
	}
	for _, f := range m.DeliveryFees {
		fee, err := toDecimal128(f.Fee)
		if err != nil {
			return itemDoc{}, err
		}
		doc.DeliveryFees = append(doc.DeliveryFees, feeDoc{Area: f.Area, Fee: fee})
	}
	return doc, nil
}

func optionsToDomain(docs []optionDoc) ([]VariationOption, error) {
	out := make([]VariationOption, 0, len(docs))
	for _, o := range docs {
		mul, err := fromDecimal128(o.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", o.Name, err)
		}
		out = append(out, VariationOption{Name: o.Name, Multiplier: mul})
	}
	return out, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}

var _ Store = (*MongoStore)(nil)
