package linkstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
)

// LinkState is the application payload that survives the round trip to
// the external provider. The provider treats the encoded form as an
// opaque string and must get it back byte-for-byte.
type LinkState struct {
	ReturnPath       string
	Intent           identity.Intent
	RequestingUserID string
}

// ErrDecode is wrapped by every Decode failure. Callers treat a decode
// failure as recoverable: the flow continues with a default destination.
var ErrDecode = errors.New("linkstate: decode failed")

// Codec encodes LinkState as a signed, URL-safe token. No server-side
// storage is involved, so a state issued by one instance decodes on any
// other instance sharing the secret. Each token carries a random nonce
// and a short expiry; an expired or tampered token fails to decode.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

type stateClaims struct {
	jwt.RegisteredClaims
	ReturnPath       string `json:"rp,omitempty"`
	Intent           string `json:"in,omitempty"`
	RequestingUserID string `json:"ru,omitempty"`
}

// Encode signs the state into a compact token. JWTs are base64url
// segments joined by dots, so the result needs no query escaping.
func (c *Codec) Encode(s LinkState) (string, error) {
	now := time.Now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(), // nonce
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		ReturnPath:       s.ReturnPath,
		Intent:           string(s.Intent),
		RequestingUserID: s.RequestingUserID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("linkstate: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies and unpacks a token produced by Encode.
func (c *Codec) Decode(raw string) (LinkState, error) {
	if raw == "" {
		return LinkState{}, fmt.Errorf("%w: empty token", ErrDecode)
	}

	token, err := jwt.ParseWithClaims(raw, &stateClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return LinkState{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid {
		return LinkState{}, fmt.Errorf("%w: invalid claims", ErrDecode)
	}

	return LinkState{
		ReturnPath:       claims.ReturnPath,
		Intent:           identity.Intent(claims.Intent),
		RequestingUserID: claims.RequestingUserID,
	}, nil
}
