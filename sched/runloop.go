package sched

import (
	"context"

	"github.com/sirupsen/logrus"
)

// RunLoop is the single-consumer driver of a RuntimeFacade's Process
// step: it owns the admission channel, submits incoming requests via
// Queue, and calls Process back to back while any slot is not Idle. Mirrors the original server loop's shape: block for the first
// request, then step until every payload drains empty before blocking
// again.
type RunLoop struct {
	facade  *RuntimeFacade
	setting Setting
	log     *logrus.Entry

	submit chan *GenerateContext
}

// NewRunLoop returns a RunLoop bound to facade, using setting for every
// Process call.
func NewRunLoop(facade *RuntimeFacade, setting Setting, log *logrus.Entry) *RunLoop {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RunLoop{
		facade:  facade,
		setting: setting,
		log:     log,
		submit:  make(chan *GenerateContext, setting.NumSlots),
	}
}

// Submit enqueues req for admission on the loop's next iteration. It
// blocks only if the loop's internal buffer (sized to NumSlots) is full.
func (l *RunLoop) Submit(ctx context.Context, gctx *GenerateContext) error {
	select {
	case l.submit <- gctx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives admission and stepping until ctx is cancelled. It blocks
// for the first submission, then repeatedly admits whatever is pending
// and steps until no slot holds work, mirroring the generate-or-idle
// loop this was generalized from.
func (l *RunLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ErrShutdown
		case gctx := <-l.submit:
			l.admit(ctx, gctx)
		}

		for l.stepUntilDrained(ctx) {
			select {
			case <-ctx.Done():
				return ErrShutdown
			case gctx := <-l.submit:
				l.admit(ctx, gctx)
			default:
			}
		}
	}
}

// admit calls Queue once. Any result other than success, including a
// fault (no Idle slot), is not retried: the request ends at once with a
// Stop event carrying FinishLength, then Done, and its sink is closed.
func (l *RunLoop) admit(ctx context.Context, gctx *GenerateContext) {
	res := l.facade.Queue(ctx, gctx)
	switch res.Kind {
	case ResultSuccess:
		return
	case ResultFault:
		l.log.WithError(res.Err).Debug("sched: no free slot, dropping submission")
	case ResultFailure:
		l.log.WithError(res.Err).Warn("sched: request rejected")
	case ResultError:
		l.log.WithError(res.Err).Error("sched: admission collaborator error")
	}
	gctx.Sender.Send(Event{Kind: EventStop, Reason: FinishLength, Counter: gctx.counter})
	gctx.Sender.Send(Event{Kind: EventDone})
	gctx.Sender.Close()
}

// stepUntilDrained runs one Process tick and reports whether any slot
// still holds work, so the caller knows whether to keep stepping without
// waiting on a new submission. A failed tick is logged; busy slots are
// stepped again on the next call.
func (l *RunLoop) stepUntilDrained(ctx context.Context) bool {
	if err := l.facade.Process(ctx, &l.setting); err != nil {
		l.log.WithError(err).Error("sched: process tick failed")
	}
	return !l.allIdle()
}

func (l *RunLoop) allIdle() bool {
	return !l.facade.core.AnyOccupied()
}
