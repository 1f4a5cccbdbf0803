package fiber

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/pkg/crypto"
)

// ActorResolver maps a bearer token to the site operator presenting it
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (core.Actor, error)
}

// StaticActor is one configured operator. TokenHash is crypto.HashToken
// of the bearer token; the token itself is never stored.
type StaticActor struct {
	Actor     core.Actor
	TokenHash string
}

// StaticActors resolves tokens against a fixed list
type StaticActors []StaticActor

var _ ActorResolver = StaticActors(nil)

func (s StaticActors) ResolveActor(ctx context.Context, token string) (core.Actor, error) {
	var found *core.Actor
	// check every entry so timing does not reveal the position of a match
	for i := range s {
		if crypto.MatchesHash(token, s[i].TokenHash) && found == nil {
			found = &s[i].Actor
		}
	}
	if found == nil {
		return core.Actor{}, core.ErrUnknownActor
	}
	return *found, nil
}

// requireActor resolves the bearer token and puts the actor on the
// request context for core.ContextAuthorizer
func (a *Adapter) requireActor(c fiber.Ctx) error {
	token, err := extractToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
			Error: err.Error(),
			Code:  fiber.StatusUnauthorized,
		})
	}

	actor, err := a.actors.ResolveActor(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
			Error: core.ErrUnknownActor.Error(),
			Code:  fiber.StatusUnauthorized,
		})
	}

	c.SetContext(core.WithActor(c.Context(), actor))
	return c.Next()
}

// extractToken reads a Bearer token from the Authorization header
func extractToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", core.ErrMissingAuthHeader
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", core.ErrInvalidAuthHeader
	}
	return strings.TrimSpace(token), nil
}
