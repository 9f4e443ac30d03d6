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


// netupdate synthesizes safe orderings of network configuration changes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netupdate/netupdate/private/app/command"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "netupdate",
		Short:         "Synthesize safe network reconfigurations",
		SilenceErrors: true,
		Long: `netupdate orders the changes between two configurations of a routed
network so that the given policy holds in every intermediate state.

The result is a dependency graph: changes without a path between them may be
deployed concurrently.`,
	}
	cmd.AddCommand(
		newSynthesize(cmd),
		newSample(cmd),
		command.NewGendocs(cmd),
	)
	return cmd
}
