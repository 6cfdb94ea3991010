package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks struct-tag constraints on the configuration.
func Validate(cfg *Config) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q validation: %w", fe.Field(), fe.Tag(), err)
		}
		return err
	}

	if cfg.LogLevel < LogLevelFatal || cfg.LogLevel > LogLevelDebug {
		return fmt.Errorf("log level %d out of range", cfg.LogLevel)
	}
	return nil
}
