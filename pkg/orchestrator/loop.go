package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/vidpipe/pkg/lookahead"
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
	"github.com/user/vidpipe/pkg/surface"
	"github.com/user/vidpipe/pkg/taskpool"
)

// loop runs the state machine on the calling goroutine:
// fill, steady, flush-vpp, flush-encode, done.
//
// A fatal error abandons the tasks in flight. Cancellation stops submitting
// and still drains what was submitted.
func (r *run) loop(ctx context.Context) error {
	r.status.advance(StateFill)
	err := r.feed.Fill(ctx)
	if err != nil {
		err = r.feedError(ctx, "Fill", err)
	}

	if err == nil {
		r.status.advance(StateSteady)
		err = r.steady(ctx)
	}
	if err == nil && r.topology.VPP() {
		r.status.advance(StateFlushVPP)
		err = r.flushVPP(ctx)
	}
	if err == nil {
		r.status.advance(StateFlushEncode)
		err = r.flushEncode(ctx)
	}

	if err != nil && !errors.Is(err, ErrCancelled) {
		if n := r.tasks.InFlight(); n > 0 {
			r.logger.Debug("Abandoning %d tasks in flight", n)
		}
		r.tasks.Close()
		return err
	}

	r.status.advance(StateDone)
	if drainErr := r.drain(); drainErr != nil {
		return drainErr
	}
	return err
}

// steady submits one picture per iteration until the source ends.
func (r *run) steady(ctx context.Context) error {
	var (
		in      *ports.Surface
		pending bool // VPP has more output for in
	)

	for {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}

		task, err := r.freeTask()
		if err != nil {
			return err
		}

		if !pending {
			var hint scenechange.Hint
			in, hint, err = r.feed.Next(ctx)
			if errors.Is(err, ports.ErrEndOfStream) {
				r.logger.Debug("End of stream after %d frames", r.status.FramesRead)
				return nil
			}
			if err != nil {
				return r.feedError(ctx, "Next", err)
			}
			r.status.FramesRead++
			r.hints.record(in.Timestamp, hint)
		}

		surf := in
		if r.topology.VPP() {
			out, err := r.encodePool.Acquire(ctx, r.cfg.SurfaceTimeout)
			if err != nil {
				return r.feedError(ctx, "Acquire", err)
			}
			st, sp, err := r.submitVPP(ctx, in, out)
			if err != nil {
				return err
			}
			pending = st == ports.StatusMoreSurface
			if !pending {
				// The last call for in has been made, it may be reloaded.
				if err := r.feed.Refill(ctx); err != nil {
					return r.feedError(ctx, "Refill", err)
				}
			}
			if st == ports.StatusMoreData {
				continue
			}
			task.AddDependency(sp)
			surf = out
		}

		if _, err := r.submitEncode(ctx, task, r.hints.control(surf), surf); err != nil {
			return err
		}

		if !r.topology.VPP() {
			if err := r.feed.Refill(ctx); err != nil {
				return r.feedError(ctx, "Refill", err)
			}
		}
	}
}

// flushVPP collects the frames the VPP stage still holds.
func (r *run) flushVPP(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		task, err := r.freeTask()
		if err != nil {
			return err
		}
		out, err := r.encodePool.Acquire(ctx, r.cfg.SurfaceTimeout)
		if err != nil {
			return r.feedError(ctx, "Acquire", err)
		}
		st, sp, err := r.submitVPP(ctx, nil, out)
		if err != nil {
			return err
		}
		if st == ports.StatusMoreData {
			return nil
		}
		task.AddDependency(sp)
		if _, err := r.submitEncode(ctx, task, r.hints.control(out), out); err != nil {
			return err
		}
	}
}

// flushEncode collects the frames the encoder still holds.
func (r *run) flushEncode(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		task, err := r.freeTask()
		if err != nil {
			return err
		}
		st, err := r.submitEncode(ctx, task, nil, nil)
		if err != nil {
			return err
		}
		if st == ports.StatusMoreData {
			return nil
		}
	}
}

// drain writes every task still in flight.
func (r *run) drain() error {
	for {
		err := r.tasks.SynchronizeFirstTask()
		if errors.Is(err, taskpool.ErrNotFound) {
			return nil
		}
		if err != nil {
			return stageError("sync", "SynchronizeFirstTask", err)
		}
	}
}

// freeTask returns an idle task, draining the oldest one when all are busy.
func (r *run) freeTask() (*taskpool.Task, error) {
	for {
		task, err := r.tasks.GetFreeTask()
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, taskpool.ErrNotFound) {
			return nil, stageError("sync", "GetFreeTask", err)
		}
		if err := r.tasks.SynchronizeFirstTask(); err != nil {
			return nil, stageError("sync", "SynchronizeFirstTask", err)
		}
	}
}

// submitVPP calls the VPP stage until it accepts the call.
// StatusMoreData and StatusMoreSurface are returned without error.
func (r *run) submitVPP(ctx context.Context, in, out *ports.Surface) (ports.Status, ports.SyncPoint, error) {
	for {
		st, sp := r.session.SubmitVPP(in, out)
		switch {
		case st == ports.StatusMoreData:
			return st, sp, nil
		case st == ports.StatusMoreSurface:
			if sp.IsZero() {
				return st, sp, stageError("vpp", "SubmitVPP", fmt.Errorf("%w without sync point", ports.ErrMoreSurface))
			}
			return st, sp, nil
		case st.IsError():
			return st, sp, stageError("vpp", "SubmitVPP", st.Err())
		case sp.IsZero():
			// Device busy, or a warning without output: repeat the call.
			if err := r.busyWait(ctx); err != nil {
				return st, sp, err
			}
			continue
		}
		if st.IsWarning() {
			r.logger.Warn("VPP warning: %s", st)
		}
		return st, sp, nil
	}
}

// submitEncode calls the encode stage until it accepts the call and commits
// the task. A too small bitstream is grown once per call.
func (r *run) submitEncode(ctx context.Context, task *taskpool.Task, ctrl *ports.EncodeControl, surf *ports.Surface) (ports.Status, error) {
	grown := false
	for {
		st, sp := r.session.SubmitEncode(ctrl, surf, task.Bitstream())
		switch {
		case st == ports.StatusMoreData:
			return st, nil
		case st == ports.StatusNotEnoughBuffer && !grown:
			if err := r.grow(task); err != nil {
				return st, err
			}
			grown = true
			continue
		case st.IsError():
			return st, stageError("encode", "SubmitEncode", st.Err())
		case sp.IsZero():
			if err := r.busyWait(ctx); err != nil {
				return st, err
			}
			continue
		}

		if st.IsWarning() {
			r.logger.Warn("Encode warning: %s", st)
		}
		if err := r.tasks.Commit(task, sp); err != nil {
			return st, stageError("encode", "Commit", err)
		}
		r.status.Submitted++
		if ctrl != nil && ctrl.FrameType.Key() {
			r.status.ForcedKeyFrames++
		}
		return st, nil
	}
}

// grow enlarges the task bitstream to the size the session reports, or
// doubles it when the report is not larger.
func (r *run) grow(task *taskpool.Task) error {
	out, err := r.session.OutputParams()
	if err != nil {
		return stageError("encode", "OutputParams", err)
	}
	current := task.Bitstream().Capacity()
	size := out.BufferSize
	if size <= current {
		size = current * 2
	}
	r.tasks.Grow(task, size)
	r.status.BufferGrowths++
	r.logger.Debug("Bitstream too small, grew task %d from %d to %d bytes", task.Index(), current, size)
	return nil
}

// busyWait sleeps before a retry and reports cancellation.
func (r *run) busyWait(ctx context.Context) error {
	r.status.BusyRetries++
	t := time.NewTimer(r.cfg.BusyRetry)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return r.cancelled(ctx)
	case <-t.C:
		return nil
	}
}

func (r *run) cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

// feedError classifies an error from the source side.
func (r *run) feedError(ctx context.Context, call string, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return r.cancelled(ctx)
	}
	switch {
	case errors.Is(err, lookahead.ErrAnalysisStopped):
		return stageError("lookahead", call, err)
	case errors.Is(err, surface.ErrNoFreeSurface):
		return stageError("surface", call, err)
	default:
		return stageError("source", call, err)
	}
}
