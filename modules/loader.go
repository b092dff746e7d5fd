package modules

import (
	"fmt"

	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services/registry"
)

// Module is a named group of commands registered together
type Module interface {
	Name() string
	Commands() ([]*models.CommandDefinition, error)
}

// Load registers every module's commands and then seals the registry. A module
// that fails to build or register is logged and skipped; the others still load.
// It returns the names of the modules that were loaded.
func Load(reg *registry.Registry, modules ...Module) []string {
	var loaded []string
	for _, module := range modules {
		if err := loadModule(reg, module); err != nil {
			log.Error("❌ Failed to load extension "+module.Name(), "error", err)
			continue
		}
		log.Info("✅ Loaded extension '" + module.Name() + "'")
		loaded = append(loaded, module.Name())
	}

	reg.Seal()
	log.Info("📋 Command registry sealed", "commands", len(reg.Commands()))
	return loaded
}

func loadModule(reg *registry.Registry, module Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module %s panicked while loading: %v", module.Name(), r)
		}
	}()

	defs, err := module.Commands()
	if err != nil {
		return fmt.Errorf("failed to build commands: %w", err)
	}
	for _, def := range defs {
		if def != nil && def.Module == "" {
			def.Module = module.Name()
		}
	}

	if err := reg.RegisterAll(defs...); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}
