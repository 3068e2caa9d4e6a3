package configs_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/configs"
	"github.com/weisyn/executive/internal/config"
	"github.com/weisyn/executive/pkg/types"
)

func TestEmbeddedConfigs(t *testing.T) {
	assert.Equal(t, []string{"development", "production"}, configs.Environments())

	for _, env := range configs.Environments() {
		t.Run(env, func(t *testing.T) {
			// Arrange
			data, err := configs.Get(env)
			require.NoError(t, err)

			// Act
			appConfig := &types.AppConfig{}
			require.NoError(t, json.Unmarshal(data, appConfig))
			provider, err := config.NewProvider(appConfig)

			// Assert
			require.NoError(t, err)
			assert.NotEmpty(t, provider.GetAppName())
		})
	}

	t.Run("未知环境", func(t *testing.T) {
		_, err := configs.Get("staging")
		assert.Error(t, err)
	})

	t.Run("返回副本", func(t *testing.T) {
		a, err := configs.Get("development")
		require.NoError(t, err)
		a[0] = 'x'
		b, err := configs.Get("development")
		require.NoError(t, err)
		assert.Equal(t, byte('{'), b[0])
	})
}
