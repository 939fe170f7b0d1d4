package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ProcurementConfig holds tunables that operators may change without a restart.
type ProcurementConfig struct {
	SupplierTokenTTL time.Duration `mapstructure:"supplierTokenTTL"`
	DefaultPageSize  int           `mapstructure:"defaultPageSize"`
	MaxPageSize      int           `mapstructure:"maxPageSize"`
	ComparisonTitle  string        `mapstructure:"comparisonTitle"`
}

func DefaultProcurementConfig() ProcurementConfig {
	return ProcurementConfig{
		SupplierTokenTTL: 24 * time.Hour,
		DefaultPageSize:  20,
		MaxPageSize:      250,
		ComparisonTitle:  "Supplier price comparison",
	}
}

type ProcurementHolder struct {
	current atomic.Value // holds ProcurementConfig
}

// NewStaticProcurementHolder returns a holder that never reloads.
func NewStaticProcurementHolder(cfg ProcurementConfig) *ProcurementHolder {
	holder := &ProcurementHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewProcurementHolder() (*ProcurementHolder, error) {
	v := viper.New()

	v.SetConfigName("procurement")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/procura")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROCURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultProcurementConfig()
	v.SetDefault("procurement.supplierTokenTTL", defaults.SupplierTokenTTL)
	v.SetDefault("procurement.defaultPageSize", defaults.DefaultPageSize)
	v.SetDefault("procurement.maxPageSize", defaults.MaxPageSize)
	v.SetDefault("procurement.comparisonTitle", defaults.ComparisonTitle)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg ProcurementConfig
	if err := v.UnmarshalKey("procurement", &cfg); err != nil {
		return nil, err
	}
	if err := validateProcurementConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticProcurementHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ProcurementConfig
		if err := v.UnmarshalKey("procurement", &updated); err != nil {
			log.Printf("[procurement-config] reload failed: %v", err)
			return
		}
		if err := validateProcurementConfig(updated); err != nil {
			log.Printf("[procurement-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[procurement-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ProcurementHolder) Get() ProcurementConfig {
	return h.current.Load().(ProcurementConfig)
}

// PageSize clamps a requested page size into the configured bounds.
func (h *ProcurementHolder) PageSize(requested int) int {
	cfg := h.Get()
	if requested <= 0 {
		return cfg.DefaultPageSize
	}
	if requested > cfg.MaxPageSize {
		return cfg.MaxPageSize
	}
	return requested
}

func validateProcurementConfig(cfg ProcurementConfig) error {
	if cfg.SupplierTokenTTL <= 0 {
		return errors.New("procurement.supplierTokenTTL must be positive")
	}
	if cfg.DefaultPageSize <= 0 {
		return errors.New("procurement.defaultPageSize must be positive")
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		return errors.New("procurement.maxPageSize must not be below defaultPageSize")
	}
	return nil
}
