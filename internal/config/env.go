package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for the settings layer.
const (
	EnvHost     = "HOST"
	EnvUsername = "USERNAME"
	EnvLight    = "LIGHT"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvLookup returns a lookup over the process environment. When envFile is
// set, its values are used for keys the process environment does not define.
func EnvLookup(envFile string) (LookupFunc, error) {
	if envFile == "" {
		return os.LookupEnv, nil
	}

	vals, err := godotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vals[key]
		return v, ok
	}, nil
}

// FromEnv builds the environment settings layer.
func FromEnv(lookup LookupFunc) Settings {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Settings{
		Host:     get(EnvHost),
		Username: get(EnvUsername),
		Light:    LightID(get(EnvLight)),
	}
}
