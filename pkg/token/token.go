package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TypeAdmin 管理接口使用的令牌类型
const TypeAdmin = "admin"

var ErrWrongType = errors.New("invalid token type")

// Claims Subject 为操作者的 Discord 用户 ID
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Generate 签发 HS256 令牌
func Generate(secret []byte, subject, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse 校验签名、有效期与令牌类型
func Parse(secret []byte, expectedType, raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != expectedType {
		return nil, ErrWrongType
	}
	return claims, nil
}
