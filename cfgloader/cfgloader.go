// Package cfgloader provides a simple way to load and validate configuration at the start of an application.
package cfgloader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

// EnvVar is the environment variable selecting the config file.
const EnvVar = "ENVIRONMENT"

// Error codes returned by Load.
const (
	CodeInvalidEnvironment = "CFGLOADER_INVALID_ENVIRONMENT"
	CodeFileNotFound       = "CFGLOADER_FILE_NOT_FOUND"
	CodeInvalidConfig      = "CFGLOADER_INVALID_CONFIG"
)

const defaultConfigDir = "./config"

// MustLoad loads and validates configuration from a YAML file based on the ENVIRONMENT variable.
// The files must be named in the format ${ENVIRONMENT}.yaml and located in the config directory
// (./config unless WithConfigDir is given).
//
// The configuration struct should use `yaml` struct tags to map fields to the YAML file structure.
// ${VAR} references in the file are expanded from the environment; a .env file is loaded first if present.
//
// Default values for configuration fields can be set using the `default` struct tag. These values are applied before validation
// if the corresponding fields are not explicitly defined in the YAML file.
//
// Validations are done using the go-playground/validator package.
// See https://pkg.go.dev/github.com/go-playground/validator/v10 for more information.
//
// Example:
//
//	type Config struct {
//	    Host        string `yaml:"host" validate:"required"`  // Maps to the "host" field in the YAML file, required
//	    Port        int    `yaml:"port" default:"8080"`       // Maps to the "port" field in the YAML file, defaults to 8080
//	    Password    string `yaml:"password" mask:"true"`      // Printed as *** when the config is logged
//	}
//
// Any failure is logged and terminates the process.
func MustLoad[T any](opts ...Option) T {
	config, err := Load[T](opts...)
	if err != nil {
		slog.Error(fmt.Sprintf("[cfgloader]: %s", err.Error()))
		os.Exit(1)
	}
	return config
}

// Load is like MustLoad but returns the error instead of exiting.
func Load[T any](opts ...Option) (T, error) {
	var config T

	o := Options{ConfigDir: defaultConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	if reflect.ValueOf(&config).Elem().Kind() == reflect.Ptr {
		return config, errx.New("type argument of Load must not be a pointer", errx.WithCode(CodeInvalidConfig))
	}

	_ = godotenv.Load()

	env, err := defineEnvironment()
	if err != nil {
		return config, err
	}

	data, err := readConfigFile(buildConfigPath(o.ConfigDir, env))
	if err != nil {
		return config, err
	}

	data = replaceEnvVars(data)

	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig), errx.WithDetails(errx.D{"env": env}))
	}

	if err = defaults.Set(&config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	if err = validateConfig(&config, env); err != nil {
		return config, err
	}

	if !o.Silent {
		printConfig(&config)
	}

	return config, nil
}

func defineEnvironment() (string, error) {
	env := os.Getenv(EnvVar)
	if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
		return "", errx.New(
			"ENVIRONMENT env variable is not set or invalid. Choices are: production, staging, dev, local, test",
			errx.WithCode(CodeInvalidEnvironment),
			errx.WithDetails(errx.D{"value": env}),
		)
	}
	return env, nil
}

func buildConfigPath(dir, env string) string {
	return filepath.Join(dir, env+".yaml")
}

func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errx.New(
			fmt.Sprintf("config file not found in the path %s - Make sure that the yaml file exists for each environment", path),
			errx.WithCode(CodeFileNotFound),
		)
	}
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}
	return data, nil
}

func replaceEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

func validateConfig(config any, env string) error {
	v := validator.New(validator.WithRequiredStructEnabled())

	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errx.Wrap(err)
	}

	failedFields := lo.Map(errs, func(fe validator.FieldError, _ int) string {
		tagErr := fe.Tag()
		if fe.Param() != "" {
			tagErr += "=" + fe.Param()
		}
		return fmt.Sprintf("%s: %s", fe.Namespace(), tagErr)
	})

	return errx.New(
		fmt.Sprintf("invalid fields in %s config -> %s", env, strings.Join(failedFields, ",  ")),
		errx.WithCode(CodeInvalidConfig),
	)
}
