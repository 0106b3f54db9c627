// Package jwt 运维Token签发与校验
//
// 运维接口（失败事件重试/取消/清理、台账清理）需要携带预先签发的Token：
//
//	Authorization: Bearer <token>
//
// Token无状态，吊销依赖Redis黑名单(按jti)。
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

const issuer = "stockhub"

// RoleOperator 运维角色
const RoleOperator = "operator"

// Manager JWT管理器
type Manager struct {
	secret []byte
	expire time.Duration
	now    func() time.Time
}

// NewManager 创建JWT管理器
func NewManager(secret string, expire time.Duration) *Manager {
	return &Manager{secret: []byte(secret), expire: expire, now: time.Now}
}

// Claims 运维Token声明
type Claims struct {
	Operator string `json:"operator"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenID     string    `json:"token_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"` // 秒
}

// Issue 为运维人员签发Token
func (m *Manager) Issue(operator, role string) (*Token, error) {
	if operator == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "运维人员不能为空")
	}

	now := m.now()
	expiresAt := now.Add(m.expire)
	claims := Claims{
		Operator: operator,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   operator,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, apperrors.Wrap(err, "签发Token失败")
	}

	return &Token{
		AccessToken: signed,
		TokenID:     claims.ID,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(m.expire.Seconds()),
	}, nil
}

// Parse 校验签名、算法、签发方和有效期
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// Remaining Token剩余有效期（吊销时作为黑名单TTL）
func (m *Manager) Remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(m.now())
}
