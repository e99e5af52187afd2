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

// Package metrics declares the Prometheus metrics emitted by a pipeline,
// labeled by pipeline name the way the teacher's internal/staging/stage
// package labels by target table.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets are the histogram buckets shared by every duration
// metric below, matching the teacher's metrics.LatencyBuckets.
var LatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// PipelineLabels is the label set shared by every metric in this package.
var PipelineLabels = []string{"pipeline"}

var (
	EnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_enqueued_jobs_total",
		Help: "the number of work-queue rows inserted by the enqueuer",
	}, PipelineLabels)

	ClaimedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_claimed_jobs_total",
		Help: "the number of work-queue rows claimed for processing",
	}, PipelineLabels)

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragmatic_job_duration_seconds",
		Help:    "the length of time it took to process one job end to end",
		Buckets: LatencyBuckets,
	}, PipelineLabels)

	JobCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_jobs_completed_total",
		Help: "the number of jobs that reached status=completed",
	}, PipelineLabels)

	JobSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_jobs_skipped_total",
		Help: "the number of jobs that reached status=skipped",
	}, PipelineLabels)

	JobFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_jobs_failed_total",
		Help: "the number of jobs that reached status=failed",
	}, PipelineLabels)

	JobRetriedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_jobs_retried_total",
		Help: "the number of times a job was returned to pending after a retryable error",
	}, PipelineLabels)

	StallsRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_stalls_recovered_total",
		Help: "the number of processing jobs reclaimed after exceeding the stall timeout",
	}, PipelineLabels)

	EmbedCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragmatic_embed_calls_total",
		Help: "the number of times the user-supplied embedder was invoked",
	}, PipelineLabels)
)
