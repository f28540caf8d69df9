package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-app/backend/task-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserUpdate su opciona polja profila; nil polje ostaje netaknuto.
type UserUpdate struct {
	Username         *string
	Email            *string
	Password         *string
	SecurityQuestion *string
	Answer           *string
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Search(ctx context.Context, search, role string) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	Activate(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	DeleteExpiredUnverified(ctx context.Context, now time.Time) (int64, error)
}

type MongoUserRepository struct {
	userCollection *mongo.Collection
}

func NewMongoUserRepository(userCollection *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{userCollection: userCollection}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()

	result, err := r.userCollection.InsertOne(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %v", err)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)

	return user, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.userCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %v", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.userCollection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %v", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}

	count, err := r.userCollection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check existing users: %v", err)
	}
	return count > 0, nil
}

func (r *MongoUserRepository) Search(ctx context.Context, search, role string) ([]models.User, error) {
	query := bson.M{}
	if search != "" {
		query["$or"] = bson.A{
			bson.M{"username": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if role != "" {
		query["role"] = role
	}

	cursor, err := r.userCollection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %v", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users: %v", err)
	}
	return users, nil
}

func (r *MongoUserRepository) Update(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error) {
	set := bson.M{}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Password != nil {
		set["password"] = *update.Password
	}
	if update.SecurityQuestion != nil {
		set["securityQuestion"] = *update.SecurityQuestion
	}
	if update.Answer != nil {
		set["answer"] = *update.Answer
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	result, err := r.userCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %v", err)
	}
	if result.MatchedCount == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

func (r *MongoUserRepository) SetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := r.userCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": passwordHash}})
	if err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}
	return nil
}

func (r *MongoUserRepository) Activate(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"isActive": true},
		"$unset": bson.M{"verificationCode": "", "verificationExpiry": ""},
	}
	_, err := r.userCollection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to activate user: %v", err)
	}
	return nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.userCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %v", err)
	}
	return result.DeletedCount > 0, nil
}

// CountByRole se poziva u trenutku registracije; pravilo "prvi admin pobeđuje"
// se oslanja na sveži upit, a ne na keširani fleg.
func (r *MongoUserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	count, err := r.userCollection.CountDocuments(ctx, bson.M{"role": role})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %v", err)
	}
	return count, nil
}

// DeleteExpiredUnverified briše naloge kojima je istekao rok za verifikaciju.
func (r *MongoUserRepository) DeleteExpiredUnverified(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"isActive":           false,
		"verificationExpiry": bson.M{"$lt": now},
	}

	result, err := r.userCollection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired unverified users: %v", err)
	}
	return result.DeletedCount, nil
}
