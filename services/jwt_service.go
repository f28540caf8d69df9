package services

import (
	"fmt"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JWTService izdaje kratkotrajne tokene za verifikaciju email adrese.
type JWTService struct{}

// GenerateEmailVerificationToken kreira JWT token sa korisničkim imenom kao claim
func (s *JWTService) GenerateEmailVerificationToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(20 * time.Minute).Unix(), // Token važi 20 minuta
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ParseEmailVerificationToken vraća korisničko ime iz validnog tokena.
func (s *JWTService) ParseEmailVerificationToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired verification token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", fmt.Errorf("token is missing username claim")
	}
	return username, nil
}
