package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	UserID   string
	Issuer   string
	IssuedAt time.Time
	// ExpiresAt is zero when the token never expires.
	ExpiresAt time.Time
}

type wireClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Manager signs and verifies HS256 bearer tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewManager validates cfg and returns a Manager bound to its secret.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Manager{
		secret: []byte(strings.TrimSpace(cfg.Secret)),
		issuer: issuer,
		ttl:    cfg.TTL,
	}, nil
}

// Issue returns a signed token for userID.
func (m *Manager) Issue(userID string, now time.Time) (string, error) {
	if m == nil {
		return "", errors.New("token manager is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("token: empty user id")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	claims := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   m.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks raw and returns its claims. Every failure maps to
// ErrInvalidToken; the underlying cause is joined for logging.
func (m *Manager) Verify(raw string, now time.Time) (Claims, error) {
	if m == nil {
		return Claims{}, ErrInvalidToken
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}
	if now.IsZero() {
		now = time.Now()
	}

	var parsed wireClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	if strings.TrimSpace(parsed.UserID) == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{UserID: parsed.UserID, Issuer: parsed.Issuer}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return out, nil
}
