package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotagate/quotagate/internal/clock"
	"github.com/quotagate/quotagate/internal/config"
	"github.com/quotagate/quotagate/internal/store"
)

type storageOptions struct {
	backend           string
	redisHost         string
	redisPort         int
	redisPassword     string
	redisDB           int
	redisCluster      bool
	redisClusterNodes []string
	redisPoolSize     int
	redisMaxRetries   int
	redisDialTimeout  time.Duration
}

func defaultStorageOptions() storageOptions {
	return storageOptions{
		backend:          store.BackendMemory,
		redisHost:        "localhost",
		redisPort:        6379,
		redisDB:          0,
		redisPoolSize:    20,
		redisMaxRetries:  3,
		redisDialTimeout: 5 * time.Second,
	}
}

func (o *storageOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "storage", store.BackendMemory, "storage backend (memory, redis)")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", "localhost", "redis host")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", 6379, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().BoolVar(&o.redisCluster, "redis-cluster", false, "enable redis cluster mode")
	cmd.Flags().StringSliceVar(&o.redisClusterNodes, "redis-cluster-nodes", nil, "redis cluster nodes host:port list")
	cmd.Flags().IntVar(&o.redisPoolSize, "redis-pool-size", 20, "redis connection pool size")
	cmd.Flags().IntVar(&o.redisMaxRetries, "redis-max-retries", 3, "redis max retries")
	cmd.Flags().DurationVar(&o.redisDialTimeout, "redis-dial-timeout", 5*time.Second, "redis dial timeout")
}

// applyConfigIfUnset backfills options from the config file for flags the
// user did not set explicitly. Flags win over the file.
func (o *storageOptions) applyConfigIfUnset(cmd *cobra.Command, cfg *config.StorageConfig) {
	if cfg == nil {
		return
	}

	if !cmd.Flags().Changed("storage") && cfg.Backend != "" {
		o.backend = cfg.Backend
	}
	if !cmd.Flags().Changed("redis-host") && cfg.Redis.Host != "" {
		o.redisHost = cfg.Redis.Host
	}
	if !cmd.Flags().Changed("redis-port") && cfg.Redis.Port > 0 {
		o.redisPort = cfg.Redis.Port
	}
	if !cmd.Flags().Changed("redis-password") && cfg.Redis.Password != "" {
		o.redisPassword = cfg.Redis.Password
	}
	if !cmd.Flags().Changed("redis-db") && cfg.Redis.DB > 0 {
		o.redisDB = cfg.Redis.DB
	}
	if !cmd.Flags().Changed("redis-cluster") {
		o.redisCluster = cfg.Redis.Cluster
	}
	if !cmd.Flags().Changed("redis-cluster-nodes") && len(cfg.Redis.ClusterNodes) > 0 {
		o.redisClusterNodes = cfg.Redis.ClusterNodes
	}
	if !cmd.Flags().Changed("redis-pool-size") && cfg.Redis.PoolSize > 0 {
		o.redisPoolSize = cfg.Redis.PoolSize
	}
	if !cmd.Flags().Changed("redis-max-retries") && cfg.Redis.MaxRetries > 0 {
		o.redisMaxRetries = cfg.Redis.MaxRetries
	}
	if !cmd.Flags().Changed("redis-dial-timeout") && cfg.Redis.DialTimeout > 0 {
		o.redisDialTimeout = cfg.Redis.DialTimeout
	}
}

// open builds the configured store. The returned cleanup is safe to call
// even when it is a no-op.
func (o *storageOptions) open() (store.Store, func(), error) {
	switch o.backend {
	case store.BackendMemory:
		return store.NewMemoryStore(clock.NewRealClock()), func() {}, nil

	case store.BackendRedis:
		s, err := store.NewRedisStore(&store.RedisConfig{
			Host:         o.redisHost,
			Port:         o.redisPort,
			Password:     o.redisPassword,
			DB:           o.redisDB,
			Cluster:      o.redisCluster,
			ClusterNodes: o.redisClusterNodes,
			PoolSize:     o.redisPoolSize,
			MaxRetries:   o.redisMaxRetries,
			DialTimeout:  o.redisDialTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q, must be one of: memory, redis", o.backend)
	}
}
