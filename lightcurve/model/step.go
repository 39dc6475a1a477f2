package model

import (
	"fmt"

	"github.com/cwbudde/algo-spex/lightcurve/params"
)

// Step models sudden flux offsets in time, such as mirror-segment tilt
// events. Each step s reads parameters "step<s>" (the height) and
// "steptime<s>" (the onset): the flux is exactly 1 before the onset and
// 1 plus the summed heights of every step at or before each sample.
type Step struct {
	name  string
	n     int
	time  []float64
	bind  *params.Binding
	names [][2]string
}

// NewStep builds a step component with n steps.
func NewStep(n int) *Step {
	s := &Step{name: "step", n: n}
	for i := 0; i < n; i++ {
		s.names = append(s.names, [2]string{
			fmt.Sprintf("step%d", i),
			fmt.Sprintf("steptime%d", i),
		})
	}

	return s
}

func (s *Step) Name() string { return s.name }

func (s *Step) Kind() Kind { return KindSystematic }

func (s *Step) SetTime(time []float64) { s.time = time }

// Bind checks that every step has both its height and onset registered.
func (s *Step) Bind(b *params.Binding) error {
	if s.n < 1 {
		return fmt.Errorf("%w: step component needs at least one step", ErrBadConfig)
	}

	for _, pair := range s.names {
		if err := checkBound(b, pair[0], pair[1]); err != nil {
			return err
		}
	}

	s.bind = b

	return nil
}

func (s *Step) EvalChannel(dst []float64, channel int) error {
	if s.bind == nil {
		return ErrNotBound
	}

	for i := range dst {
		dst[i] = 1
	}

	for _, pair := range s.names {
		h, err := s.bind.Value(pair[0], channel)
		if err != nil {
			return err
		}

		t0, err := s.bind.Value(pair[1], channel)
		if err != nil {
			return err
		}

		if h == 0 {
			continue
		}

		for i, t := range s.time {
			if t >= t0 {
				dst[i] += h
			}
		}
	}

	return nil
}
