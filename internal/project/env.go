package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvFile = ".env"

	EnvThreads    = "BISCUIT_THREADS"
	EnvErrorLimit = "BISCUIT_ERROR_LIMIT"
	EnvModulePath = "BISCUIT_MODULE_PATH"
)

// Env holds overrides from the process environment and the project's .env
// file. Zero fields are unset.
type Env struct {
	Threads    int
	ErrorLimit int
	ModulePath []string
}

// LoadEnv reads dir/.env if present. Variables set in the process
// environment win over the file.
func LoadEnv(dir string) (Env, error) {
	vars := map[string]string{}
	if dir != "" {
		path := filepath.Join(dir, EnvFile)
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			vars = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return Env{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, k := range []string{EnvThreads, EnvErrorLimit, EnvModulePath} {
		if v, ok := os.LookupEnv(k); ok {
			vars[k] = v
		}
	}

	var env Env
	var err error
	if env.Threads, err = positive(vars, EnvThreads); err != nil {
		return Env{}, err
	}
	if env.ErrorLimit, err = positive(vars, EnvErrorLimit); err != nil {
		return Env{}, err
	}
	if v := vars[EnvModulePath]; v != "" {
		for _, d := range filepath.SplitList(v) {
			if d != "" {
				env.ModulePath = append(env.ModulePath, d)
			}
		}
	}
	return env, nil
}

func positive(vars map[string]string, key string) (int, error) {
	v, ok := vars[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s=%q: expected a non-negative integer", key, v)
	}
	return n, nil
}

// Apply overrides the build settings that e sets.
func (e Env) Apply(b *BuildConfig) {
	if e.Threads > 0 {
		b.Threads = e.Threads
	}
	if e.ErrorLimit > 0 {
		b.ErrorLimit = e.ErrorLimit
	}
	b.ModuleDirs = append(b.ModuleDirs, e.ModulePath...)
}
