// Package auth turns request credentials into a models.Actor.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
)

// Resolver extracts the caller from request headers. A request without
// credentials resolves to an anonymous actor with no capabilities.
type Resolver interface {
	Resolve(ctx context.Context, header http.Header) (models.Actor, error)
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx, or an anonymous actor.
func ActorFrom(ctx context.Context) models.Actor {
	actor, _ := ctx.Value(actorKey{}).(models.Actor)
	return actor
}

// HeaderResolver trusts X-Actor-Id and X-Actor-Capabilities as sent. It is
// meant for local development behind a trusted proxy.
type HeaderResolver struct{}

const (
	HeaderActorID      = "X-Actor-Id"
	HeaderCapabilities = "X-Actor-Capabilities"
)

func (HeaderResolver) Resolve(_ context.Context, header http.Header) (models.Actor, error) {
	raw := header.Get(HeaderActorID)
	if raw == "" {
		return models.Actor{}, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return models.Actor{}, apperr.Wrap(apperr.KindUnauthorized, "auth.HeaderResolver", err).With("actor_id", raw)
	}
	caps, err := parseCapabilities(strings.Split(header.Get(HeaderCapabilities), ","))
	if err != nil {
		return models.Actor{}, apperr.Wrap(apperr.KindUnauthorized, "auth.HeaderResolver", err)
	}
	return models.Actor{ID: id, Capabilities: caps}, nil
}

var errUnknownCapability = errors.New("unknown capability")

func parseCapabilities(raw []string) ([]models.Capability, error) {
	var caps []models.Capability
	for _, c := range raw {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		switch capability := models.Capability(c); capability {
		case models.CapabilityViewer, models.CapabilityEditor, models.CapabilityAdmin:
			caps = append(caps, capability)
		default:
			return nil, errUnknownCapability
		}
	}
	return caps, nil
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(header http.Header) string {
	v := header.Get("Authorization")
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(v[7:])
}
