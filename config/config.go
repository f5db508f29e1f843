// Package config loads the animator settings shared by the web browser and
// the tools. Values come from defaults, an optional config file and
// SKELANIM_* environment variables, in increasing priority.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding"
)

type CacheConfig struct {
	MaxJointsPerPose int `mapstructure:"maxJointsPerPose"`
	MaxTotal         int `mapstructure:"maxTotal"`
	GrowStep         int `mapstructure:"growStep"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	LogLevel        string      `mapstructure:"logLevel"`
	MaxJoints       int         `mapstructure:"maxJoints"`
	StrictScript    bool        `mapstructure:"strictScript"`
	UnitScale       float32     `mapstructure:"unitScale"`
	RootAxisMask    int         `mapstructure:"rootAxisMask"`
	DefaultRootBone string      `mapstructure:"defaultRootBone"`
	Encoding        string      `mapstructure:"encoding"`
	Cache           CacheConfig `mapstructure:"cache"`
	Web             WebConfig   `mapstructure:"web"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("maxJoints", 256)
	v.SetDefault("strictScript", true)
	v.SetDefault("unitScale", 1.0)
	v.SetDefault("rootAxisMask", 0)
	v.SetDefault("defaultRootBone", "")
	v.SetDefault("encoding", "")
	v.SetDefault("cache.maxJointsPerPose", 256)
	v.SetDefault("cache.maxTotal", 256*64)
	v.SetDefault("cache.growStep", 256*4)
	v.SetDefault("web.addr", ":8000")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SKELANIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration without any file applied.
func Default() Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the config file at path (yaml, json or toml by extension).
// An empty path only applies defaults and environment.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "Failed to read config %q", path)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "Failed to decode config")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.MaxJoints <= 0 {
		return errors.Errorf("maxJoints must be positive, got %d", c.MaxJoints)
	}
	if c.Cache.MaxJointsPerPose <= 0 || c.Cache.GrowStep <= 0 {
		return errors.Errorf("cache sizes must be positive: %+v", c.Cache)
	}
	if c.Cache.MaxTotal < c.Cache.MaxJointsPerPose {
		return errors.Errorf("cache.maxTotal %d is below cache.maxJointsPerPose %d",
			c.Cache.MaxTotal, c.Cache.MaxJointsPerPose)
	}
	if c.RootAxisMask < 0 || c.RootAxisMask > 7 {
		return errors.Errorf("rootAxisMask must be in [0,7], got %d", c.RootAxisMask)
	}
	return nil
}

// NameEncoding resolves the Encoding setting.
func (c Config) NameEncoding() (encoding.Encoding, error) {
	return LookupEncoding(c.Encoding)
}
