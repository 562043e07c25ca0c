package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nutrivibes/api/internal/config"
	"github.com/nutrivibes/api/internal/userctx"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownRole  = errors.New("unknown role")
)

// Service issues and verifies access tokens. Tokens are HS256 JWTs
// carrying the user ID and role.
type Service struct {
	config *config.Config
}

func NewService(cfg *config.Config) *Service {
	return &Service{config: cfg}
}

// Identity is the verified subject of a request.
type Identity struct {
	UserID string
	Role   string
}

// GenerateToken signs an access token for the given identity.
func (s *Service) GenerateToken(userID, role string) (string, error) {
	return s.generateTokenWithTTL(userID, role, time.Duration(s.config.JWTTTLMinutes)*time.Minute)
}

func (s *Service) generateTokenWithTTL(userID, role string, ttl time.Duration) (string, error) {
	if role != userctx.RoleDietician && role != userctx.RoleClient {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iss":  s.config.JWTIssuer,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyToken parses and validates an access token.
func (s *Service) VerifyToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(s.config.JWTIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || (role != userctx.RoleDietician && role != userctx.RoleClient) {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: sub, Role: role}, nil
}
