package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mockup_embedder_v1_202610/internal/apperr"
	"mockup_embedder_v1_202610/internal/config"
)

// SessionClaims 嵌入式前端会话令牌的载荷
type SessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// SessionVerifier 校验前端会话令牌并取出店铺标识，不访问网络
type SessionVerifier struct {
	mode   string
	apiKey string
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewSessionVerifier 创建校验器
// mode 为 decode 时只解析结构与过期时间，不校验签名
func NewSessionVerifier(mode, apiKey, apiSecret string) *SessionVerifier {
	if mode != config.SessionModeDecode {
		mode = config.SessionModeVerified
	}
	return &SessionVerifier{
		mode:   mode,
		apiKey: apiKey,
		secret: []byte(apiSecret),
		leeway: 5 * time.Second,
		now:    time.Now,
	}
}

// Mode 当前校验模式
func (v *SessionVerifier) Mode() string {
	return v.mode
}

// Verify 校验令牌，返回店铺域名
// 缺失/格式错误/过期/签名错误一律返回 ErrUnauthenticated
func (v *SessionVerifier) Verify(raw string) (string, error) {
	raw = stripBearer(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: missing session token", apperr.ErrUnauthenticated)
	}

	var claims SessionClaims
	var err error
	if v.mode == config.SessionModeDecode {
		err = v.decode(raw, &claims)
	} else {
		err = v.verify(raw, &claims)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}

	shop := TenantFromDest(claims.Dest)
	if shop == "" {
		return "", fmt.Errorf("%w: missing dest claim", apperr.ErrUnauthenticated)
	}
	return shop, nil
}

func (v *SessionVerifier) verify(raw string, claims *SessionClaims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.apiKey != "" {
		opts = append(opts, jwt.WithAudience(v.apiKey))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return err
	}

	// iss 形如 https://{shop}/admin，必须与 dest 指向同一店铺
	if claims.Issuer != "" && TenantFromDest(claims.Issuer) != TenantFromDest(claims.Dest) {
		return errors.New("issuer does not match dest")
	}
	return nil
}

func (v *SessionVerifier) decode(raw string, claims *SessionClaims) error {
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return err
	}
	if claims.ExpiresAt != nil && v.now().After(claims.ExpiresAt.Add(v.leeway)) {
		return jwt.ErrTokenExpired
	}
	return nil
}

// stripBearer 去掉可选的 Bearer 前缀，方案名不区分大小写
func stripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return raw
}

// TenantFromDest 去掉协议与路径，得到店铺域名
func TenantFromDest(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return ""
	}
	if strings.Contains(dest, "://") {
		if u, err := url.Parse(dest); err == nil && u.Host != "" {
			return strings.ToLower(u.Host)
		}
	}
	if i := strings.Index(dest, "/"); i >= 0 {
		dest = dest[:i]
	}
	return strings.ToLower(dest)
}
