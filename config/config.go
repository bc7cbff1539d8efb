// Package config selects and configures a transport binding from a file
// and/or HERMES_* environment variables.
//
// Example (yaml):
//
//	binding: web
//	log_level: info
//	web:
//	  base_url: https://ledger.example.com/rpc
//	  text: true
//
// Environment variables override file values, with "." replaced by "_":
// HERMES_BINDING, HERMES_NATIVE_TARGET, HERMES_WEB_BASE_URL, ...
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"xdao.co/hermes/transport"
	"xdao.co/hermes/transport/native"
	"xdao.co/hermes/transport/web"
)

const EnvPrefix = "HERMES"

var ErrMissingTarget = errors.New("config: selected binding has no target")

type Config struct {
	Binding  string       `mapstructure:"binding" validate:"required,oneof=native web"`
	LogLevel string       `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Native   NativeConfig `mapstructure:"native"`
	Web      WebConfig    `mapstructure:"web"`
}

type NativeConfig struct {
	// Target is a gRPC dial target, usually host:port.
	Target      string        `mapstructure:"target"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	MaxMsgBytes int           `mapstructure:"max_msg_bytes" validate:"gte=0"`
}

type WebConfig struct {
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
	Text        bool   `mapstructure:"text"`
	MaxMsgBytes int    `mapstructure:"max_msg_bytes" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the values used when neither file nor environment sets them.
func Default() Config {
	return Config{
		Binding:  native.Name,
		LogLevel: "info",
		Native:   NativeConfig{DialTimeout: 5 * time.Second},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("binding", d.Binding)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("native.target", "")
	v.SetDefault("native.dial_timeout", d.Native.DialTimeout)
	v.SetDefault("native.max_msg_bytes", 0)
	v.SetDefault("web.base_url", "")
	v.SetDefault("web.text", false)
	v.SetDefault("web.max_msg_bytes", 0)
}

// Load reads path (yaml, json or toml, by extension) and applies HERMES_*
// overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, cfg.Validate()
}

// Validate checks field ranges and that the selected binding has a target.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Param() != "" {
				return fmt.Errorf("config: invalid %s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param())
			}
			return fmt.Errorf("config: invalid %s (%s)", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	switch {
	case c.Binding == native.Name && strings.TrimSpace(c.Native.Target) == "":
		return ErrMissingTarget
	case c.Binding == web.Name && strings.TrimSpace(c.Web.BaseURL) == "":
		return ErrMissingTarget
	}
	return nil
}

// Open validates c and constructs the configured binding.
func (c Config) Open() (transport.Binding, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Binding {
	case native.Name:
		conn, err := native.Dial(c.Native.Target, native.DialOptions{
			Timeout:     c.Native.DialTimeout,
			MaxMsgBytes: c.Native.MaxMsgBytes,
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	case web.Name:
		conn, err := web.New(c.Web.BaseURL, web.Options{
			Text:        c.Web.Text,
			MaxMsgBytes: c.Web.MaxMsgBytes,
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("config: unknown binding %q", c.Binding)
	}
}
