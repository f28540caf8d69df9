package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username           string             `bson:"username" json:"username"`
	Email              string             `bson:"email" json:"email"`
	Password           string             `bson:"password" json:"-"`
	Role               string             `bson:"role" json:"role"`
	SecurityQuestion   string             `bson:"securityQuestion" json:"securityQuestion"`
	Answer             string             `bson:"answer" json:"-"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	VerificationCode   string             `bson:"verificationCode,omitempty" json:"-"`
	VerificationExpiry time.Time          `bson:"verificationExpiry,omitempty" json:"-"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
