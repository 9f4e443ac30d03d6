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


//go:build linux

// Package processmetrics exports the scheduling times of the process: the
// CPU time all threads spent running and the time they were runnable but
// waited for a core. The solvers are CPU bound, so the two together show
// how much of the machine a synthesis run actually got. On platforms other
// than Linux, Register does nothing.
package processmetrics

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

var (
	runningTime = prometheus.NewDesc(
		"process_running_seconds_total",
		"CPU time all threads of the process spent running.",
		nil, nil,
	)
	runnableTime = prometheus.NewDesc(
		"process_runnable_seconds_total",
		"Time all threads of the process were runnable but not scheduled.",
		nil, nil,
	)
	goCores = prometheus.NewDesc(
		"go_sched_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting.",
		nil, nil,
	)
	taskListUpdates = prometheus.NewDesc(
		"process_metrics_tasklist_updates_total",
		"The number of times the thread list was reloaded.",
		nil, nil,
	)
)

type collector struct {
	pid       int
	tasks     *os.File
	threads   procfs.Procs
	taskCount uint64
	reloads   int64
	running   uint64
	runnable  uint64
}

// update sums the schedstat of every thread. The thread list is only
// reloaded when the link count of /proc/<pid>/task changes.
func (c *collector) update() error {
	var st syscall.Stat_t
	if err := syscall.Fstat(int(c.tasks.Fd()), &st); err != nil {
		return err
	}
	//nolint:unconvert // Nlink differs in size between architectures.
	count := uint64(st.Nlink - 2)
	if count != c.taskCount {
		threads, err := procfs.AllThreads(c.pid)
		if err != nil {
			return err
		}
		c.threads, c.taskCount = threads, count
		c.reloads++
	}
	var running, runnable uint64
	var err error
	for _, p := range c.threads {
		s, serr := p.Schedstat()
		if serr != nil {
			// The thread is gone; the others are still valid.
			err = serr
			continue
		}
		running += s.RunningNanoseconds
		runnable += s.WaitingNanoseconds
	}
	c.running, c.runnable = running, runnable
	return err
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	_ = c.update()
	ch <- prometheus.MustNewConstMetric(runningTime, prometheus.CounterValue,
		float64(c.running)/1e9)
	ch <- prometheus.MustNewConstMetric(runnableTime, prometheus.CounterValue,
		float64(c.runnable)/1e9)
	ch <- prometheus.MustNewConstMetric(goCores, prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)))
	ch <- prometheus.MustNewConstMetric(taskListUpdates, prometheus.CounterValue,
		float64(c.reloads))
}

// Register adds the collector to reg. It fails if /proc is not readable or
// if a collector is already registered with reg.
func Register(reg prometheus.Registerer) error {
	pid := os.Getpid()
	path := filepath.Join(procfs.DefaultMountPoint, strconv.Itoa(pid), "task")
	tasks, err := os.Open(path)
	if err != nil {
		return serrors.Wrap("opening task directory", err, "path", path)
	}
	c := &collector{pid: pid, tasks: tasks}
	if err := c.update(); err != nil {
		tasks.Close()
		return serrors.Wrap("reading schedstat", err)
	}
	if err := reg.Register(c); err != nil {
		tasks.Close()
		return serrors.Wrap("registering collector", err)
	}
	return nil
}
