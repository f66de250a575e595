package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtAlgorithm = jwt.SigningMethodHS256

var (
	mu           sync.RWMutex
	jwtSecret    []byte
	masterSecret []byte
)

// Configure sets the secrets used to sign admin tokens and API keys
func Configure(jwtKey, apiMasterSecret string) {
	mu.Lock()
	defer mu.Unlock()
	jwtSecret = []byte(jwtKey)
	masterSecret = []byte(apiMasterSecret)
}

func secrets() ([]byte, []byte) {
	mu.RLock()
	defer mu.RUnlock()
	return jwtSecret, masterSecret
}

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func CreateToken(username string) (string, error) {
	key, _ := secrets()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(key)
}

// VerifyToken verifies a JWT token
func VerifyToken(tokenString string) (*Claims, error) {
	key, _ := secrets()
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// EnsureAdminExists creates the bootstrap admin when no admin exists yet
func EnsureAdminExists(db *gorm.DB, username, password string) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := db.Create(&database.MasterUser{Username: username, PasswordHash: hash}).Error; err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("default admin user created")
	return nil
}

// GenerateHMACKey creates a signed API key using HMAC-SHA256
func GenerateHMACKey(userID string) string {
	_, secret := secrets()
	return userID + "." + sign(secret, userID)
}

// VerifyHMACKey validates an HMAC-signed API key and returns its user id
func VerifyHMACKey(key string) (string, error) {
	idx := strings.LastIndex(key, ".")
	if idx <= 0 || idx == len(key)-1 {
		return "", errors.New("invalid key format")
	}
	userID, provided := key[:idx], key[idx+1:]

	_, secret := secrets()
	expected := sign(secret, userID)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return "", errors.New("invalid signature")
	}
	return userID, nil
}

func sign(secret []byte, userID string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
