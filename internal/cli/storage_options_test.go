package cli

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotagate/quotagate/internal/config"
	"github.com/quotagate/quotagate/internal/store"
)

func TestStorageOptions_Open_Memory(t *testing.T) {
	opts := defaultStorageOptions()

	st, cleanup, err := opts.open()
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	defer cleanup()

	if _, ok := st.(*store.MemoryStore); !ok {
		t.Errorf("open() returned %T, want *store.MemoryStore", st)
	}
}

func TestStorageOptions_Open_UnknownBackend(t *testing.T) {
	opts := defaultStorageOptions()
	opts.backend = "etcd"

	if _, _, err := opts.open(); err == nil {
		t.Error("open() with unknown backend should fail")
	}
}

func TestStorageOptions_ApplyConfigIfUnset(t *testing.T) {
	opts := defaultStorageOptions()
	cmd := &cobra.Command{}
	opts.addFlags(cmd)

	if err := cmd.Flags().Set("redis-host", "flagged.example"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	cfg := &config.StorageConfig{
		Backend: store.BackendRedis,
		Redis: config.RedisConfig{
			Host:        "configured.example",
			Port:        6380,
			DialTimeout: 2 * time.Second,
		},
	}
	opts.applyConfigIfUnset(cmd, cfg)

	if opts.backend != store.BackendRedis {
		t.Errorf("backend = %q, want %q", opts.backend, store.BackendRedis)
	}
	if opts.redisHost != "flagged.example" {
		t.Errorf("redisHost = %q, flag should win over config", opts.redisHost)
	}
	if opts.redisPort != 6380 {
		t.Errorf("redisPort = %d, want 6380", opts.redisPort)
	}
	if opts.redisDialTimeout != 2*time.Second {
		t.Errorf("redisDialTimeout = %v, want 2s", opts.redisDialTimeout)
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "class", "example-config"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v; want the subcommand", name, cmd, err)
		}
	}
}
