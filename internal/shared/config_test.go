package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STAFF_API_KEY", "k")
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", c.HTTPAddr)
	require.Empty(t, c.MetricsAddr, "the API serves /metrics itself; a second listener is opt-in")
	require.Equal(t, "mysql", c.Storage.Driver)
	require.Equal(t, 5*time.Minute, c.Cache.TTL)
	require.Equal(t, "@every 15m", c.Sync.Schedule)
	require.Equal(t, 180, c.Sync.WindowDays)
	require.True(t, c.Property.CashTolerance.IsZero())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CURRENCY", "gbp")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("CASH_TOLERANCE", "0.50")
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, "GBP", c.Property.Currency)
	require.Equal(t, 30*time.Second, c.Cache.TTL)
	require.Equal(t, "0.5", c.Property.CashTolerance.String())
}

func TestLoad_RejectsBadDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := Load()
	require.Error(t, err)
}
