package progress

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// effect is one notification and/or sound cue triggered by a mutation.
// An empty title means sound only.
type effect struct {
	kind  string
	title string
	body  string
	cue   SoundCue
}

// dispatch runs effects in order on a detached goroutine
func (s *Store) dispatch(op string, effects []effect) {
	if len(effects) == 0 {
		return
	}

	s.effects.Add(1)
	go func() {
		defer s.effects.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.effectTimeout)
		defer cancel()

		for _, e := range effects {
			s.run(ctx, op, e)
		}
	}()
}

func (s *Store) run(ctx context.Context, op string, e effect) {
	if e.title != "" {
		s.metrics.Notification(e.kind)
		if s.notifier != nil {
			s.call(op, e.kind, "notify", func() error {
				return s.notifier.NotifyAchievement(ctx, e.title, e.body)
			})
		}
	}
	if e.cue != "" && s.sounds != nil {
		s.call(op, e.kind, "sound", func() error {
			return s.sounds.Play(ctx, e.cue)
		})
	}
}

// call invokes fn, logging and counting any error or panic
func (s *Store) call(op, kind, channel string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.SideEffectFailure(channel)
			s.log.Error("side effect panicked",
				zap.String("op", op),
				zap.String("kind", kind),
				zap.String("channel", channel),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := fn(); err != nil {
		s.metrics.SideEffectFailure(channel)
		s.log.Warn("side effect failed",
			zap.String("op", op),
			zap.String("kind", kind),
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}
