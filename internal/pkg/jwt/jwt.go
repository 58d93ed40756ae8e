package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
)

type Service struct {
	secret []byte
	ttl    time.Duration
}

// Claims identify a realtime subscriber. BusinessIDs lists the business
// channels the subscriber may listen on.
type Claims struct {
	ProfileID   string   `json:"profile_id"`
	BusinessIDs []string `json:"business_ids"`
	jwtlib.RegisteredClaims
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *Service) GenerateToken(profileID string, businessIDs []string) (string, error) {
	now := time.Now()
	claims := Claims{
		ProfileID:   profileID,
		BusinessIDs: businessIDs,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   profileID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ProfileID == "" {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// CanSubscribe reports whether the claims grant access to businessID.
func (c *Claims) CanSubscribe(businessID string) bool {
	for _, id := range c.BusinessIDs {
		if id == businessID {
			return true
		}
	}
	return false
}
