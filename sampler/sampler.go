package sampler

import (
	"github.com/CraigKelly/hsdm/model"
)

// A Kernel performs one full sweep over the model parameters. It must leave
// Rho inside the state's domain and call Record on the control exactly once.
type Kernel interface {
	Advance(s *model.State, ctl *Adaptive) error
}

// KernelFunc adapts a plain function to the Kernel interface
type KernelFunc func(s *model.State, ctl *Adaptive) error

// Advance calls f
func (f KernelFunc) Advance(s *model.State, ctl *Adaptive) error {
	return f(s, ctl)
}
