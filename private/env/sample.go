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


package env

const loggingSample = `
# Logging level: debug, info or error. (default info)
level = "info"

# Output format: human or json. (default human)
format = "human"
`

const metricsSample = `
# The address to export prometheus metrics on (host:port or :port). The
# metrics are served under /metrics. If not set, metrics are not exported.
# (default "")
prometheus = ""
`

const tracingSample = `
# Enable tracing. (default false)
enabled = false

# Sample every span. (default false)
debug = false

# Address of the local jaeger agent. (default localhost:6831)
agent = "localhost:6831"
`
