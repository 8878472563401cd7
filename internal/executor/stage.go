package executor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stage is one step of a run.
type Stage string

const (
	StageReceived     Stage = "received"
	StageUnlocking    Stage = "unlocking"
	StageEstimating   Stage = "estimating"
	StageBuilding     Stage = "building"
	StageSimulating   Stage = "simulating"
	StageBroadcasting Stage = "broadcasting"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// StageError records where a run failed. It unwraps to the cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// run tracks one request through its stages.
type run struct {
	log   zerolog.Logger
	stage Stage
	start time.Time
}

func (e *Executor) newRun(op string) *run {
	id := uuid.NewString()
	r := &run{
		log:   e.logger.With().Str("op", op).Str("op_id", id).Logger(),
		stage: StageReceived,
		start: e.now(),
	}
	return r
}

func (r *run) enter(next Stage) {
	r.log.Debug().Str("from", string(r.stage)).Str("to", string(next)).Msg("Stage transition")
	r.stage = next
}

func (r *run) done() {
	r.enter(StageDone)
	r.log.Info().Dur("took", time.Since(r.start)).Msg("Run complete")
}

// fail moves to Failed and returns err tagged with the stage it happened in.
func (r *run) fail(err error) error {
	failed := r.stage
	r.enter(StageFailed)
	r.log.Error().Err(err).Str("stage", string(failed)).Msg("Run failed")
	return &StageError{Stage: failed, Err: err}
}
