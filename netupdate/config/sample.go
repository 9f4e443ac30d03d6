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


package config

const synthesisSample = `
# The strategy used to order the modifiers: zone or linear. (default zone)
strategy = "zone"

# The number of zones solved concurrently. (default 4)
parallelism = 4

# The time budget of one synthesis run. (default 5m0s)
budget = "5m0s"

# Replay the topological order of the result and check the policy in every
# intermediate state. (default false)
verify = false
`
