package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/supplytrack/accounts/internal/core/domain"
)

const (
	accountsCollection = "accounts"

	addressIndex     = "uniq_address"
	displayNameIndex = "uniq_display_name"
)

// AccountRepository stores accounts in MongoDB. Uniqueness of address and
// display name is enforced by unique indexes, so Create is a single insert.
// EnsureIndexes must run before the first write.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

// additional_data is stored as JSON text so arbitrary keys round-trip
// without bson type mapping.
type mongoAccount struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Address        string             `bson:"address"`
	DisplayName    string             `bson:"display_name"`
	Role           int                `bson:"role"`
	PasswordHash   string             `bson:"password_hash,omitempty"`
	AdditionalData string             `bson:"additional_data"`
	IsAdmin        bool               `bson:"is_admin"`
	IsStaff        bool               `bson:"is_staff"`
	DateJoined     time.Time          `bson:"date_joined"`
	LastLogin      *time.Time         `bson:"last_login,omitempty"`
}

// EnsureIndexes creates the unique indexes the repository relies on.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "address", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(addressIndex),
		},
		{
			Keys:    bson.D{{Key: "display_name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(displayNameIndex),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toDocument(account)
	if err != nil {
		return nil, err
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, uniquenessError(err, account)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created := account.Clone()
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return created, nil
}

func (r *AccountRepository) FindByAddress(ctx context.Context, address string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"address": address}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return toDomain(doc)
}

func (r *AccountRepository) UpdatePrivileges(ctx context.Context, address string, isAdmin, isStaff bool) error {
	return r.set(ctx, address, bson.M{"is_admin": isAdmin, "is_staff": isStaff})
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, address, passwordHash string) error {
	return r.set(ctx, address, bson.M{"password_hash": passwordHash})
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, address string, at time.Time) error {
	return r.set(ctx, address, bson.M{"last_login": at.UTC()})
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) set(ctx context.Context, address string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"address": address}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// uniquenessError works out which unique index rejected the insert. The
// server names the index in the write error message.
func uniquenessError(err error, account *domain.Account) *domain.UniquenessError {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, displayNameIndex) {
				return &domain.UniquenessError{Field: domain.FieldDisplayName, Value: account.DisplayName}
			}
		}
	}
	return &domain.UniquenessError{Field: domain.FieldAddress, Value: account.Address}
}

func toDocument(a *domain.Account) (mongoAccount, error) {
	data, err := json.Marshal(a.AdditionalData)
	if err != nil {
		return mongoAccount{}, fmt.Errorf("encode additional data: %w", err)
	}
	doc := mongoAccount{
		Address:        a.Address,
		DisplayName:    a.DisplayName,
		Role:           int(a.Role),
		PasswordHash:   a.PasswordHash,
		AdditionalData: string(data),
		IsAdmin:        a.IsAdmin,
		IsStaff:        a.IsStaff,
		DateJoined:     a.DateJoined,
		LastLogin:      a.LastLogin,
	}
	if a.ID != "" {
		oid, err := primitive.ObjectIDFromHex(a.ID)
		if err != nil {
			return mongoAccount{}, fmt.Errorf("account id %q: %w", a.ID, err)
		}
		doc.ID = oid
	}
	return doc, nil
}

func toDomain(doc mongoAccount) (*domain.Account, error) {
	data := domain.NewAdditionalData()
	if doc.AdditionalData != "" {
		if err := json.Unmarshal([]byte(doc.AdditionalData), &data); err != nil {
			return nil, fmt.Errorf("decode additional data for %s: %w", doc.Address, err)
		}
	}
	a := &domain.Account{
		ID:             doc.ID.Hex(),
		Address:        doc.Address,
		DisplayName:    doc.DisplayName,
		Role:           domain.Role(doc.Role),
		PasswordHash:   doc.PasswordHash,
		AdditionalData: data,
		IsAdmin:        doc.IsAdmin,
		IsStaff:        doc.IsStaff,
		DateJoined:     doc.DateJoined.UTC(),
	}
	if doc.LastLogin != nil {
		t := doc.LastLogin.UTC()
		a.LastLogin = &t
	}
	return a, nil
}
