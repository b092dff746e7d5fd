package registry

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/mo"

	"botfoundation/core"
	"botfoundation/core/log"
	"botfoundation/models"
)

// Registry maps command names and aliases to definitions. It is written during
// startup only; after Seal it is read without locking.
type Registry struct {
	mu       sync.RWMutex
	sealed   atomic.Bool
	byName   map[string]*models.CommandDefinition
	commands []*models.CommandDefinition
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*models.CommandDefinition),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a definition. It fails if the canonical name or any alias
// collides case-insensitively with a name already registered.
func (r *Registry) Register(def *models.CommandDefinition) error {
	return r.RegisterAll(def)
}

// RegisterAll adds definitions atomically: on any collision nothing is registered
func (r *Registry) RegisterAll(defs ...*models.CommandDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return core.ErrRegistrySealed
	}

	pending := make(map[string]string)
	for _, def := range defs {
		if def == nil {
			return fmt.Errorf("command definition cannot be nil")
		}
		if normalize(def.Name) == "" {
			return fmt.Errorf("command name cannot be empty")
		}
		if def.Handler == nil {
			return fmt.Errorf("command %q has no handler", def.Name)
		}

		for _, name := range def.Names() {
			key := normalize(name)
			if key == "" {
				return fmt.Errorf("command %q has an empty alias", def.Name)
			}
			if strings.ContainsAny(key, " \t\n") {
				return fmt.Errorf("command name %q cannot contain whitespace", name)
			}
			if existing, ok := r.byName[key]; ok {
				return fmt.Errorf("%q already registered by command %q: %w", name, existing.Name, core.ErrDuplicateCommand)
			}
			if owner, ok := pending[key]; ok {
				return fmt.Errorf("%q already registered by command %q: %w", name, owner, core.ErrDuplicateCommand)
			}
			pending[key] = def.Name
		}
	}

	for _, def := range defs {
		for _, name := range def.Names() {
			r.byName[normalize(name)] = def
		}
		r.commands = append(r.commands, def)
		log.Debug("📋 Registered command", "command", def.Name, "aliases", def.Aliases, "module", def.Module)
	}

	return nil
}

// Seal makes the registry read-only
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Resolve looks a command up by canonical name or alias, ignoring case
func (r *Registry) Resolve(name string) mo.Option[*models.CommandDefinition] {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	def, ok := r.byName[normalize(name)]
	if !ok {
		return mo.None[*models.CommandDefinition]()
	}
	return mo.Some(def)
}

// Commands returns all definitions in registration order
func (r *Registry) Commands() []*models.CommandDefinition {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	out := make([]*models.CommandDefinition, len(r.commands))
	copy(out, r.commands)
	return out
}
