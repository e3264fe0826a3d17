// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/ikusare/internal/platform/constants"
)

// # Run Outcome

// State is the per-provider lifecycle state within one run.
type State string

const (
	StatePending   State = "PENDING"
	StateSkipped   State = "SKIPPED"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// ProviderResult is the outcome of one provider within a run.
type ProviderResult struct {
	Provider string `json:"provider"`
	State    State  `json:"state"`

	// Reason explains a SKIPPED or FAILED state.
	Reason string `json:"reason,omitempty"`

	// Imported counts upserted items; Skipped counts items dropped by normalize.
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Err is the failure cause, kept for classification at the trigger boundary.
	Err error `json:"-"`
}

// Report is the outcome of one trigger invocation.
type Report struct {
	RunID      string           `json:"run_id"`
	Trigger    string           `json:"trigger"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Results    []ProviderResult `json:"results"`
}

// OK reports whether no provider FAILED.
func (report *Report) OK() bool {
	return report.FirstFailure() == nil
}

// FirstFailure returns the first FAILED result, or nil.
func (report *Report) FirstFailure() *ProviderResult {
	for i := range report.Results {
		if report.Results[i].State == StateFailed {
			return &report.Results[i]
		}
	}
	return nil
}

// Imported sums imported items across providers.
func (report *Report) Imported() int {
	total := 0
	for _, result := range report.Results {
		total += result.Imported
	}
	return total
}

// Count returns how many providers ended in state.
func (report *Report) Count(state State) int {
	n := 0
	for _, result := range report.Results {
		if result.State == state {
			n++
		}
	}
	return n
}

// # Redis Report Store

// latestReportKey holds the most recent report; per-run keys use the run id.
const latestReportKey = constants.RedisPrefixRunReport + "latest"

// RedisReportRepository implements [ReportRepository] on Redis with a fixed TTL.
type RedisReportRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReportRepository constructs a report store expiring entries after
// [constants.RunReportTTL].
func NewRedisReportRepository(client *redis.Client) *RedisReportRepository {
	return &RedisReportRepository{client: client, ttl: constants.RunReportTTL}
}

// Save implements [ReportRepository].
func (repository *RedisReportRepository) Save(context context.Context, report *Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("catalogsync: encode report: %w", err)
	}

	pipe := repository.client.TxPipeline()
	pipe.Set(context, constants.RedisPrefixRunReport+report.RunID, payload, repository.ttl)
	pipe.Set(context, latestReportKey, payload, repository.ttl)
	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("catalogsync: save report %s: %w", report.RunID, err)
	}
	return nil
}

// Latest implements [ReportRepository].
func (repository *RedisReportRepository) Latest(context context.Context) (*Report, error) {
	payload, err := repository.client.Get(context, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalogsync: load latest report: %w", err)
	}

	report := &Report{}
	if err := json.Unmarshal(payload, report); err != nil {
		return nil, fmt.Errorf("catalogsync: decode report: %w", err)
	}
	return report, nil
}
