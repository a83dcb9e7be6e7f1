package cron

import (
	"context"
	"fmt"
)

type sweeper interface {
	Sweep() int
}

// SweepJob evicts expired sessions and rate limit windows from the
// in-process store.
type SweepJob struct {
	store sweeper
}

func NewSweepJob(store sweeper) (*SweepJob, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &SweepJob{store: store}, nil
}

func (j *SweepJob) Name() string { return "memstore_sweep" }

func (j *SweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.store.Sweep()
	return nil
}
