// Copyright 2024 The RAGmatic Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Config enumerates the configuration knobs of spec.md §5.
type Config struct {
	PollingInterval   time.Duration
	BatchSize         int
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	StalledJobTimeout time.Duration
	SkipIndexSetup    bool

	// Logger overrides the package-level logrus logger, per spec.md §6's
	// "configurable sink; silent mode supported". Nil uses log.StandardLogger().
	Logger *log.Logger
}

// DefaultConfig returns the knob defaults enumerated in spec.md §5.
func DefaultConfig() Config {
	return Config{
		PollingInterval:   time.Second,
		BatchSize:         5,
		MaxRetries:        3,
		InitialRetryDelay: time.Second,
		MaxRetryDelay:     3_000_000 * time.Millisecond,
		StalledJobTimeout: time.Minute,
	}
}

// normalized fills in zero-valued fields with DefaultConfig's values.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.PollingInterval <= 0 {
		c.PollingInterval = d.PollingInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InitialRetryDelay <= 0 {
		c.InitialRetryDelay = d.InitialRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = d.MaxRetryDelay
	}
	if c.StalledJobTimeout <= 0 {
		c.StalledJobTimeout = d.StalledJobTimeout
	}
	return c
}
