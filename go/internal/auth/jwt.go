package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

// JWTConfig configures token verification.
type JWTConfig struct {
	Secret string `yaml:"secret" env:"AUTH_JWT_SECRET"`
	Issuer string `yaml:"issuer" env:"AUTH_JWT_ISSUER"`
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration `yaml:"leeway" env:"AUTH_JWT_LEEWAY"`
}

// JWTResolver verifies HS256 bearer tokens.
type JWTResolver struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTResolver creates a resolver. clock drives expiry checks.
func NewJWTResolver(cfg JWTConfig, clock clockwork.Clock) (*JWTResolver, error) {
	if cfg.Secret == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "auth.NewJWTResolver").With("secret", "empty")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(clock.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTResolver{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

func (r *JWTResolver) Resolve(_ context.Context, header http.Header) (models.Actor, error) {
	const op = "auth.JWTResolver"
	raw := bearerToken(header)
	if raw == "" {
		return models.Actor{}, nil
	}

	var claims Claims
	tok, err := r.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return models.Actor{}, apperr.Wrap(apperr.KindUnauthorized, op, err)
	}
	if !tok.Valid {
		return models.Actor{}, apperr.New(apperr.KindUnauthorized, op)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Actor{}, apperr.Wrap(apperr.KindUnauthorized, op, err).With("sub", claims.Subject)
	}
	caps, err := parseCapabilities(claims.Capabilities)
	if err != nil {
		return models.Actor{}, apperr.Wrap(apperr.KindUnauthorized, op, err).With("actor_id", id.String())
	}
	return models.Actor{ID: id, Capabilities: caps}, nil
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
