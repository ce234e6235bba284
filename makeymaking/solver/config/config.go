// Copyright 2024 The WachuMakeyMaking Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads solver parameters from a config file and the environment.
//
// Keys, with their environment variables:
//
//	solver.max_iterations  MAKEYMAKING_SOLVER_MAX_ITERATIONS
//	solver.tolerance       MAKEYMAKING_SOLVER_TOLERANCE
//
// Environment variables take precedence over the file, which takes precedence
// over ilp.DefaultParameters.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ArcaneAj/WachuMakeyMaking/makeymaking/solver/ilp"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "MAKEYMAKING"

	keyMaxIterations = "solver.max_iterations"
	keyTolerance     = "solver.tolerance"
)

// ErrInvalidParameter is returned for a parameter that is not positive.
var ErrInvalidParameter = errors.New("parameter must be positive")

// Load returns the solver parameters. `path` names an optional YAML, JSON or
// TOML file; an empty path reads the environment only.
func Load(path string) (*ilp.Parameters, error) {
	v := viper.New()
	defaults := ilp.DefaultParameters()
	v.SetDefault(keyMaxIterations, defaults.MaxIterations)
	v.SetDefault(keyTolerance, defaults.Tolerance)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	params := &ilp.Parameters{
		MaxIterations: v.GetInt(keyMaxIterations),
		Tolerance:     v.GetFloat64(keyTolerance),
	}
	if params.MaxIterations <= 0 {
		return nil, fmt.Errorf("%s=%d: %w", keyMaxIterations, params.MaxIterations, ErrInvalidParameter)
	}
	if params.Tolerance <= 0 {
		return nil, fmt.Errorf("%s=%g: %w", keyTolerance, params.Tolerance, ErrInvalidParameter)
	}
	return params, nil
}
