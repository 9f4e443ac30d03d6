// Copyright 2026 ETH Zurich
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package flag contains the command line flags shared by netupdate commands.
package flag

import (
	"os"
	"sync"

	"github.com/spf13/pflag"

	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/strategy"
)

const (
	// ConfigEnv names the environment variable holding the config file.
	ConfigEnv = "NETUPDATE_CONFIG"
	// LogLevelEnv names the environment variable holding the log level.
	LogLevelEnv = "NETUPDATE_LOG_LEVEL"
)

type stringVal string

func (v *stringVal) Set(val string) error {
	*v = stringVal(val)
	return nil
}

func (v *stringVal) Type() string   { return "string" }
func (v *stringVal) String() string { return string(*v) }

type levelVal string

func (v *levelVal) Set(val string) error {
	if _, err := log.ParseLevel(val); err != nil {
		return err
	}
	*v = levelVal(val)
	return nil
}

func (v *levelVal) Type() string   { return "level" }
func (v *levelVal) String() string { return string(*v) }

type kindVal strategy.Kind

func (v *kindVal) Set(val string) error {
	k, err := strategy.ParseKind(val)
	if err != nil {
		return err
	}
	*v = kindVal(k)
	return nil
}

func (v *kindVal) Type() string   { return "strategy" }
func (v *kindVal) String() string { return strategy.Kind(*v).String() }

// KindVarP defines a strategy kind flag.
func KindVarP(fs *pflag.FlagSet, k *strategy.Kind, name, shorthand, usage string) *pflag.Flag {
	return fs.VarPF((*kindVal)(k), name, shorthand, usage)
}

// Environment gives access to the values that can be set on the command
// line and in the OS environment. Command line flags take precedence.
type Environment struct {
	config     string
	configFlag *pflag.Flag
	configEnv  *string
	level      string
	levelFlag  *pflag.Flag
	levelEnv   *string

	mtx sync.Mutex
}

// Register registers the command line flags. Without registration only the
// environment is considered.
func (e *Environment) Register(flagSet *pflag.FlagSet) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.configFlag = flagSet.VarPF((*stringVal)(&e.config), "config", "c",
		"Configuration file (TOML). Overrides "+ConfigEnv+".")
	e.levelFlag = flagSet.VarPF((*levelVal)(&e.level), "log.level", "",
		"Console logging level: debug, info or error. Overrides "+LogLevelEnv+
			" and the configuration file.")
}

// LoadExternalVars reads the OS environment. Invalid values are reported,
// missing ones are not.
func (e *Environment) LoadExternalVars() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if c, ok := os.LookupEnv(ConfigEnv); ok {
		e.configEnv = &c
	}
	if l, ok := os.LookupEnv(LogLevelEnv); ok {
		if _, err := log.ParseLevel(l); err != nil {
			return err
		}
		e.levelEnv = &l
	}
	return nil
}

// ConfigFile returns the configuration file or the empty string if none is
// set.
func (e *Environment) ConfigFile() string {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.configFlag != nil && e.configFlag.Changed {
		return e.config
	}
	if e.configEnv != nil {
		return *e.configEnv
	}
	return ""
}

// LogLevel returns the log level override, if any.
func (e *Environment) LogLevel() (string, bool) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.levelFlag != nil && e.levelFlag.Changed {
		return e.level, true
	}
	if e.levelEnv != nil {
		return *e.levelEnv, true
	}
	return "", false
}
