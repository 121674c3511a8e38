package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/sampler"
)

type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	Chains     *expvar.Int
	DrawTarget *expvar.Int
	Draws      *expvar.Int
	Accepted   *expvar.Int
	Rejected   *expvar.Int
	AcceptRate *expvar.Float
	MeanJump   *expvar.Float
	MaxDrift   *expvar.Float
	RunTime    *expvar.Float
}

// Start begins the monitor
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("hsdm-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: addr,
	}

	// Redirect to the only thing currently available: the expvar handler
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.Chains = expvar.NewInt("Chain-Count")
	m.DrawTarget = expvar.NewInt("Draw-Target")
	m.Draws = expvar.NewInt("Draws")
	m.Accepted = expvar.NewInt("Rho-Accepted")
	m.Rejected = expvar.NewInt("Rho-Rejected")
	m.AcceptRate = expvar.NewFloat("Rho-Accept-Rate")
	m.MeanJump = expvar.NewFloat("Rho-Mean-Jump")
	m.MaxDrift = expvar.NewFloat("Rho-Max-Drift")
	m.RunTime = expvar.NewFloat("Run-Time")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

// Update publishes the progress of the chains. It is a no-op for a monitor
// that was never started.
func (m *monitor) Update(chains []*sampler.Chain, began time.Time) {
	if m.info == nil {
		return
	}

	var draws, acc, rej int64
	jump, drift := 0.0, 0.0
	for _, ch := range chains {
		draws += ch.Draws()
		acc += ch.Control.Accepted
		rej += ch.Control.Rejected
		jump += ch.Control.Jump
		if d, ok := ch.RhoDrift(); ok && d > drift {
			drift = d
		}
	}

	m.Chains.Set(int64(len(chains)))
	m.Draws.Set(draws)
	m.Accepted.Set(acc)
	m.Rejected.Set(rej)
	if acc+rej > 0 {
		m.AcceptRate.Set(float64(acc) / float64(acc+rej))
	}
	if len(chains) > 0 {
		m.MeanJump.Set(jump / float64(len(chains)))
	}
	m.MaxDrift.Set(drift)
	m.RunTime.Set(time.Since(began).Seconds())
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
