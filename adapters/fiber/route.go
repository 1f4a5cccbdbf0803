package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/services"
)

type Adapter struct {
	app      *fiber.App
	actors   ActorResolver
	registry *services.EndpointRegistry
}

var _ core.HTTPAdapter = (*Adapter)(nil)

// New returns an adapter that mounts the connection endpoints on app.
// Every route requires a bearer token that actors resolves.
func New(app *fiber.App, actors ActorResolver) *Adapter {
	return &Adapter{
		app:      app,
		actors:   actors,
		registry: services.NewEndpointRegistry(),
	}
}

func (a *Adapter) RegisterRoutes(handler core.ConnectionHandler, basePath string) error {
	if a.actors == nil {
		return fmt.Errorf("fiber: actor resolver is required")
	}

	handlers := map[string]func(core.ConnectionHandler, int) fiber.Handler{
		"checkKey":       handleCheckKey,
		"connect":        handleConnect,
		"getConnection":  handleGetConnection,
		"disconnect":     handleDisconnect,
		"setKey":         handleSetKey,
		"roleChanged":    handleRoleChanged,
		"accountDeleted": handleAccountDeleted,
	}

	api := a.app.Group(basePath)
	for _, ep := range a.registry.Endpoints() {
		newHandler, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("fiber: no handler for operation %q", ep.Metadata.OperationID)
		}
		api.Add([]string{ep.Method}, ep.Path, a.requireActor, newHandler(handler, ep.Metadata.SuccessStatus))
	}

	return nil
}
