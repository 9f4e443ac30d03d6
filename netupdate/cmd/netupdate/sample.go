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


package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netupdate/netupdate/netupdate/config"
	"github.com/netupdate/netupdate/private/app/command"
)

func newSample(pather command.Pather) *cobra.Command {
	return &cobra.Command{
		Use:     "sample",
		Short:   "Print a sample configuration file",
		Example: fmt.Sprintf("  %[1]s sample > netupdate.toml", pather.CommandPath()),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg config.Config
			cfg.Sample(cmd.OutOrStdout(), nil, nil)
			return nil
		},
	}
}
