// Package keys simulates key presses, once or as a timed press cycle.
package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/pagecapture/internal/config"
	"github.com/ivlev/pagecapture/internal/system"
)

var (
	ErrMissingKey   = errors.New("no key found in the key configuration")
	ErrInvalidInput = errors.New("input is not a valid key configuration mapping")
	ErrPress        = errors.New("key press failed")
)

// Presser taps a single named key.
type Presser interface {
	KeyTap(key string) error
}

type Simulator struct {
	presser Presser
	log     logrus.FieldLogger
	sleep   system.SleepFunc
}

func NewSimulator(presser Presser, log logrus.FieldLogger) *Simulator {
	return &Simulator{
		presser: presser,
		log:     log,
		sleep:   system.Sleep,
	}
}

// WithSleep replaces the wait used between presses.
func (s *Simulator) WithSleep(fn system.SleepFunc) *Simulator {
	s.sleep = fn
	return s
}

// Press taps key exactly once. An empty key is passed through as is.
func (s *Simulator) Press(key string) error {
	s.log.WithField("key", key).Debug("pressing key")
	if err := s.presser.KeyTap(key); err != nil {
		s.log.WithField("key", key).WithError(err).Error("unable to press key")
		return fmt.Errorf("%w: %q: %w", ErrPress, key, err)
	}
	return nil
}

// Simulate runs kc.Repeat cycles of wait, press, wait.
// A failed press is logged and the remaining cycles still run.
func (s *Simulator) Simulate(ctx context.Context, kc config.KeyConfig) error {
	if kc.Key == "" {
		s.log.Error(ErrMissingKey.Error())
		return ErrMissingKey
	}

	var result *multierror.Error
	for i := 0; i < kc.Repeat; i++ {
		if err := s.sleep(ctx, kc.DelayBefore); err != nil {
			return err
		}
		if err := s.Press(kc.Key); err != nil {
			result = multierror.Append(result, err)
		}
		if err := s.sleep(ctx, kc.DelayAfter); err != nil {
			return err
		}
	}
	return result.ErrorOrNil()
}

// SimulateValue is Simulate for an untyped document, e.g. freshly decoded JSON.
func (s *Simulator) SimulateValue(ctx context.Context, v any) error {
	kc, err := config.FromValue(v)
	if err != nil {
		s.log.WithError(err).Error(ErrInvalidInput.Error())
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.Simulate(ctx, kc)
}
