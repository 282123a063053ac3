package client_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	client "github.com/pocketrelay/client"
	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/inst"
)

func TestNewInstance(t *testing.T) {
	t.Parallel()

	c := config.MakeTestConfig(config.Store{
		System: config.System{
			StatePath: filepath.Join(t.TempDir(), "state.json"),
		},
	})

	instance, err := client.New("0.6.0", c)
	require.NoError(t, err)

	// The instance provides all global attributes.
	var _ inst.Ance = instance

	assert.Equal(t, "0.6.0", instance.Version())
	assert.NotNil(t, instance.Storage())
	assert.NotNil(t, instance.HostsGuard())
	assert.NotNil(t, instance.Lookup())
	assert.NotNil(t, instance.HTTPClient())
}

func TestNewInstanceBadStatePath(t *testing.T) {
	t.Parallel()

	c := config.MakeTestConfig(config.Store{})
	c.System.StatePath = "state.toml"

	_, err := client.New("0.6.0", c)
	assert.Error(t, err)
}
