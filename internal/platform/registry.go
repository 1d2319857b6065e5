package platform

import (
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
)

// methodAware is implemented by adapters that serve one connection method of
// a platform.
type methodAware interface {
	Method() string
}

type registryKey struct {
	platform models.Platform
	method   string
}

// Registry holds one adapter per platform and connection method. It is built
// once at startup.
type Registry struct {
	adapters map[registryKey]Operations
	defaults map[models.Platform]Operations
}

// NewRegistry registers adapters; the first adapter of a platform becomes its
// default.
func NewRegistry(adapters ...Operations) *Registry {
	r := &Registry{
		adapters: make(map[registryKey]Operations),
		defaults: make(map[models.Platform]Operations),
	}
	for _, a := range adapters {
		method := ""
		if m, ok := a.(methodAware); ok {
			method = m.Method()
		}
		r.Register(method, a)
	}
	return r
}

func (r *Registry) Register(method string, ops Operations) {
	p := ops.Platform()
	r.adapters[registryKey{p, method}] = ops
	if _, ok := r.defaults[p]; !ok {
		r.defaults[p] = ops
	}
}

func (r *Registry) Lookup(p models.Platform) (Operations, error) {
	ops, ok := r.defaults[p]
	if !ok {
		return nil, apperr.NotSupported(p.String(), "connect")
	}
	return ops, nil
}

// LookupMethod returns the adapter for a connection method, falling back to
// the platform default when method is empty.
func (r *Registry) LookupMethod(p models.Platform, method string) (Operations, error) {
	if method == "" {
		return r.Lookup(p)
	}
	ops, ok := r.adapters[registryKey{p, method}]
	if !ok {
		return nil, apperr.Validation("method", "%s does not support connection method %q", p, method)
	}
	return ops, nil
}

func (r *Registry) ForAccount(acc *models.SocialAccount) (Operations, error) {
	return r.LookupMethod(acc.Platform, acc.Metadata.Method())
}

func (r *Registry) ForPage(page *models.SocialPage) (Operations, error) {
	return r.LookupMethod(page.Platform, page.Metadata.Method())
}

func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.defaults))
	for _, p := range models.Platforms() {
		if _, ok := r.defaults[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
