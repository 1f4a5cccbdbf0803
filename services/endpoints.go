package services

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/lborres/webpro/core"
)

// BaseEndpoints returns framework-agnostic endpoint specifications
// for every connection operation. Adapters attach their own handlers
// by OperationID.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/check-key",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID:   "checkKey",
				Description:   "Preview who a platform key belongs to without connecting",
				SuccessStatus: http.StatusOK,
			},
		},
		{
			Path:   "/connections",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID:   "connect",
				Description:   "Connect the web pro a platform key belongs to",
				SuccessStatus: http.StatusCreated,
			},
		},
		{
			Path:   "/connections/:id",
			Method: http.MethodGet,
			Metadata: core.EndpointMetadata{
				OperationID:   "getConnection",
				Description:   "Get the connection record and state for an account",
				SuccessStatus: http.StatusOK,
			},
		},
		{
			Path:   "/connections/:id",
			Method: http.MethodDelete,
			Metadata: core.EndpointMetadata{
				OperationID:   "disconnect",
				Description:   "Disconnect a web pro and notify the platform",
				SuccessStatus: http.StatusOK,
			},
		},
		{
			Path:   "/connections/:id/key",
			Method: http.MethodPut,
			Metadata: core.EndpointMetadata{
				OperationID:   "setKey",
				Description:   "Bind or repair the platform key for an account",
				SuccessStatus: http.StatusOK,
			},
		},
		{
			Path:   "/events/role-changed",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID:   "roleChanged",
				Description:   "Revoke access when a web pro loses the administrator role",
				SuccessStatus: http.StatusNoContent,
			},
		},
		{
			Path:   "/events/account-deleted",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID:   "accountDeleted",
				Description:   "Revoke access before a web pro account is deleted",
				SuccessStatus: http.StatusNoContent,
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
//
// It starts with the base connection endpoints and accepts extra endpoints
// (such as a health check) with the same conflict detection.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a registry with the base connection endpoints
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		reg.register(&base[i])
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint to the registry with conflict detection.
// Returns error if an endpoint with the same METHOD:PATH already exists.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// Register adds extra endpoints to the registry.
// Nothing is registered if any endpoint conflicts with an existing one
// or with another in the same batch.
func (r *EndpointRegistry) Register(endpoints []core.Endpoint) error {
	// First, check for conflicts with existing endpoints
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
	}

	// Check for conflicts within the batch itself
	seen := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if seen[key] {
			return fmt.Errorf("duplicate endpoint in batch: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	// No conflicts found
	for i := range endpoints {
		ep := &endpoints[i]
		r.endpoints[endpointKey(ep)] = ep
	}

	return nil
}

// Endpoints returns all registered endpoints sorted by path then method
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
