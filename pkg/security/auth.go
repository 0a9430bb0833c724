package security

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/roles"
)

const tokenTTL = 12 * time.Hour // one shift plus handover

var jwtSecret []byte

var ErrInvalidCredentials = errors.New("invalid username or password")

// Configure sets the HMAC secret used to sign and verify tokens.
func Configure(secret string) error {
	if secret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	jwtSecret = []byte(secret)
	return nil
}

type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

func AuthenticateUser(ctx context.Context, username, password string, users UserFinder) (*models.User, error) {
	user, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func GenerateJWT(userID int, role roles.Role, username string) (string, error) {
	claims := jwt.MapClaims{
		"userID":   strconv.Itoa(userID),
		"role":     string(role),
		"username": username,
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// CurrentUserID returns the user id stored by JWTMiddleware.
func CurrentUserID(c *gin.Context) (int, error) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, errors.New("no authenticated user")
	}
	userID, ok := value.(int)
	if !ok {
		return 0, fmt.Errorf("userID has unexpected type %T", value)
	}
	return userID, nil
}

func CurrentRole(c *gin.Context) roles.Role {
	role, _ := c.Get("role")
	s, _ := role.(string)
	return roles.Role(s)
}
