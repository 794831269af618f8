package util

import (
	"errors"
	"time"
	"values_edu_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextClaimsKey = "claims"
	ContextUserKey   = "user"
)

// Claims 外部认证服务签发的令牌，Subject 即 external_auth_id
type Claims struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Role    model.UserRole `json:"role"`
	ClassID *uint          `json:"class_id,omitempty"`
	Picture string         `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// CurrentUser 解析后的内部用户身份
type CurrentUser struct {
	UserID  uint
	Role    model.UserRole
	ClassID *uint
}

// GenerateJWT 仅供本地联调与测试使用
func GenerateJWT(claims Claims, secret string, expiration time.Duration) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(expiration))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject is empty")
	}
	return claims, nil
}

func GetClaimsFromContext(c *gin.Context) *Claims {
	v, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := v.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func GetUserFromContext(c *gin.Context) *CurrentUser {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := v.(*CurrentUser)
	if !ok {
		return nil
	}
	return user
}
