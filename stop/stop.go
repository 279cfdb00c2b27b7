// Copyright 2016 CoreOS, Inc
//
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

// Package stop coordinates cancelling rgzip's in-flight per-file
// decompression jobs together, so a single SIGINT during a multi-file run
// stops every remaining file rather than letting each run to completion.
package stop

import (
	"sync"
)

// AlreadyDone is a closed channel, for StopperFuncs that have nothing left
// to wait for once asked to stop.
var AlreadyDone <-chan struct{}

func init() {
	closeMe := make(chan struct{})
	close(closeMe)
	AlreadyDone = closeMe
}

// StopperFunc stops one job, returning a channel that closes once it has.
type StopperFunc func() <-chan struct{}

// Group is a set of jobs that stop together.
type Group struct {
	stoppables     []StopperFunc
	stoppablesLock sync.Mutex
}

// NewGroup allocates an empty Group.
func NewGroup() *Group {
	return &Group{}
}

// AddFunc registers a job's stop callback with the group.
func (cg *Group) AddFunc(toAddFunc StopperFunc) {
	cg.stoppablesLock.Lock()
	defer cg.stoppablesLock.Unlock()

	cg.stoppables = append(cg.stoppables, toAddFunc)
}

// Stop asks every registered job to stop, and returns a channel that
// closes once all of them have.
func (cg *Group) Stop() <-chan struct{} {
	cg.stoppablesLock.Lock()
	defer cg.stoppablesLock.Unlock()

	whenDone := make(chan struct{})

	waitChannels := make([]<-chan struct{}, 0, len(cg.stoppables))
	for _, toStop := range cg.stoppables {
		waitFor := toStop()
		if waitFor == nil {
			panic("stop: a StopperFunc returned a nil channel")
		}
		waitChannels = append(waitChannels, waitFor)
	}

	cg.stoppables = nil

	go func() {
		for _, waitForMe := range waitChannels {
			<-waitForMe
		}
		close(whenDone)
	}()

	return whenDone
}
