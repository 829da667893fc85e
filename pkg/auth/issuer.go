package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenMinutes 自定义令牌默认有效期（分钟）
const DefaultTokenMinutes = 60

// TokenIssuer 签发客户端直连远程存储所用的自定义令牌。
// 客户端携带令牌通过存储侧的安全规则校验，uid声明参与规则判定。
type TokenIssuer struct {
	clientEmail string
	audience    string
	key         *rsa.PrivateKey

	// sign 可替换的签名函数，测试时注入
	sign func(claims jwt.MapClaims) (string, error)
}

// NewTokenIssuer 创建令牌签发器
func NewTokenIssuer(clientEmail, audience string, privateKeyPEM []byte) (*TokenIssuer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	ti := &TokenIssuer{
		clientEmail: clientEmail,
		audience:    audience,
		key:         key,
	}
	ti.sign = ti.signLocal
	return ti, nil
}

// NewTokenIssuerFromFile 从PEM文件创建令牌签发器
func NewTokenIssuerFromFile(clientEmail, audience, keyFile string) (*TokenIssuer, error) {
	pem, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read private key file: %w", err)
	}
	return NewTokenIssuer(clientEmail, audience, pem)
}

// CreateCustomToken 为给定uid签发RS256自定义令牌。
// 签名调用可能经过远程身份服务，连接类失败重试一次，其余失败直接返回。
func (ti *TokenIssuer) CreateCustomToken(uid string, validMinutes int) (string, error) {
	if validMinutes <= 0 {
		validMinutes = DefaultTokenMinutes
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": ti.clientEmail,
		"sub": ti.clientEmail,
		"aud": ti.audience,
		"uid": uid, // 存储侧安全规则依据该字段授权
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(validMinutes) * time.Minute).Unix(),
	}

	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := ti.sign(claims)
		if err == nil {
			return token, nil
		}
		lastErr = err
		if !isRetryableSigningError(err) {
			break
		}
	}
	return "", fmt.Errorf("create custom token: %w", lastErr)
}

func (ti *TokenIssuer) signLocal(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ti.key)
}

// isRetryableSigningError 判断签名失败是否值得重试。
// 身份服务可能把连接重置包装后抛出，密钥类错误则是永久失败。
func isRetryableSigningError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
