package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfoundation/core"
	"botfoundation/models"
)

func noopHandler(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	return nil
}

func newDef(name string, aliases ...string) *models.CommandDefinition {
	return &models.CommandDefinition{Name: name, Aliases: aliases, Handler: noopHandler}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	help := newDef("help", "commands", "h")
	require.NoError(t, r.Register(help))
	require.NoError(t, r.Register(newDef("ping")))
	r.Seal()

	tests := []struct {
		name     string
		lookup   string
		expected string
		found    bool
	}{
		{name: "canonical", lookup: "help", expected: "help", found: true},
		{name: "alias", lookup: "commands", expected: "help", found: true},
		{name: "short alias", lookup: "h", expected: "help", found: true},
		{name: "mixed case", lookup: "HeLp", expected: "help", found: true},
		{name: "upper alias", lookup: "COMMANDS", expected: "help", found: true},
		{name: "other", lookup: "ping", expected: "ping", found: true},
		{name: "unknown", lookup: "nope", found: false},
		{name: "empty", lookup: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maybeDef := r.Resolve(tt.lookup)
			assert.Equal(t, tt.found, maybeDef.IsPresent())
			if tt.found {
				assert.Equal(t, tt.expected, maybeDef.MustGet().Name)
			}
		})
	}

	// alias lookups resolve to the very same definition
	assert.Same(t, help, r.Resolve("commands").MustGet())
}

func TestRegistry_RejectsCollisions(t *testing.T) {
	tests := []struct {
		name     string
		existing *models.CommandDefinition
		incoming *models.CommandDefinition
	}{
		{name: "same name", existing: newDef("ping"), incoming: newDef("ping")},
		{name: "name differs by case", existing: newDef("ping"), incoming: newDef("PING")},
		{name: "alias matches existing name", existing: newDef("ping"), incoming: newDef("pong", "Ping")},
		{name: "name matches existing alias", existing: newDef("help", "h"), incoming: newDef("H")},
		{name: "alias matches existing alias", existing: newDef("help", "commands"), incoming: newDef("list", "commands")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register(tt.existing))

			err := r.Register(tt.incoming)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrDuplicateCommand)
			assert.Len(t, r.Commands(), 1)
		})
	}
}

func TestRegistry_RejectsSelfCollision(t *testing.T) {
	r := NewRegistry()
	err := r.Register(newDef("help", "HELP"))
	assert.ErrorIs(t, err, core.ErrDuplicateCommand)
	assert.Empty(t, r.Commands())
}

func TestRegistry_RegisterAllIsAtomic(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterAll(newDef("warn"), newDef("warnings"), newDef("Warn"))
	assert.ErrorIs(t, err, core.ErrDuplicateCommand)
	assert.Empty(t, r.Commands())
	assert.True(t, r.Resolve("warn").IsAbsent())

	require.NoError(t, r.RegisterAll(newDef("warn"), newDef("warnings")))
	assert.Len(t, r.Commands(), 2)
}

func TestRegistry_InvalidDefinitions(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newDef("")))
	assert.Error(t, r.Register(newDef("   ")))
	assert.Error(t, r.Register(newDef("two words")))
	assert.Error(t, r.Register(newDef("ok", "")))
	assert.Error(t, r.Register(&models.CommandDefinition{Name: "nohandler"}))
	assert.Empty(t, r.Commands())
}

func TestRegistry_Sealed(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newDef("ping")))
	assert.False(t, r.Sealed())

	r.Seal()
	assert.True(t, r.Sealed())

	err := r.Register(newDef("pong"))
	assert.ErrorIs(t, err, core.ErrRegistrySealed)
	assert.True(t, r.Resolve("ping").IsPresent())
	assert.True(t, r.Resolve("pong").IsAbsent())
}

func TestRegistry_CommandsKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newDef("zeta")))
	require.NoError(t, r.Register(newDef("alpha")))
	require.NoError(t, r.Register(newDef("mid")))

	var names []string
	for _, def := range r.Commands() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}
