package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. INTAKE_TELEGRAM_TOKEN.
const EnvPrefix = "INTAKE"

// LoadConfig reads defaults, then the YAML file at path (optional when it does not exist),
// then INTAKE_* environment variables, and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		splitListElementsHook(),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitListElementsHook expands comma-joined string elements of a list, so
// INTAKE_TELEGRAM_ADMIN_IDS=11,22 decodes the same as [11, 22] in YAML. Viper hands such
// env values over as a one-element []string, which StringToSliceHookFunc does not touch.
func splitListElementsHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.Slice || to.Kind() != reflect.Slice {
			return data, nil
		}
		var raw []string
		switch items := data.(type) {
		case []string:
			raw = items
		case []any:
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return data, nil
				}
				raw = append(raw, s)
			}
		default:
			return data, nil
		}

		out := make([]string, 0, len(raw))
		for _, s := range raw {
			for _, part := range strings.Split(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
		return out, nil
	}
}
