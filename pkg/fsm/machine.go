// Package fsm drives the installer stages as a superfly/fsm workflow so each
// transition of a run is persisted and observable.
package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/macwinusb/winusb/pkg/errors"
	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/superfly/fsm"
)

// Machine holds dependencies for FSM transitions
type Machine struct {
	pipeline   *installer.Pipeline
	maxRetries int

	mu       sync.Mutex
	outcomes map[string]*outcome
}

type outcome struct {
	result *installer.Result
	err    error
}

// NewMachine creates a new FSM machine around a pipeline
func NewMachine(pipeline *installer.Pipeline, maxRetries int) *Machine {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Machine{
		pipeline:   pipeline,
		maxRetries: maxRetries,
		outcomes:   make(map[string]*outcome),
	}
}

// Register registers the burn FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[BurnRequest, BurnResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[BurnRequest, BurnResponse](manager, "winusb-burn").
		Start(StateMount, m.handleMount).
		To(StatePrepare, m.handlePrepare).
		To(StateCopy, m.handleCopy).
		To(StatePayload, m.handlePayload).
		To(StateRelease, m.handleRelease).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}

// Run starts a burn for in and waits for it to finish. Stage failures come
// back as the pipeline's *errors.StageError.
func (m *Machine) Run(ctx context.Context, manager *fsm.Manager, start fsm.Start[BurnRequest, BurnResponse], in installer.Inputs) (*installer.Result, error) {
	req := &BurnRequest{
		RunKey:      in.RunKey,
		SourceImage: in.SourceImage,
		SHA256:      in.SHA256,
		Device:      in.Device,
	}

	version, err := start(ctx, in.RunKey, fsm.NewRequest(req, &BurnResponse{}))
	if err != nil {
		return nil, errors.Wrap(err, "FSM start failed")
	}
	slog.Debug("fsm_started", "run_key", in.RunKey, "version", version)

	waitErr := manager.Wait(ctx, version)

	o := m.take(in.RunKey)
	if o != nil && o.err != nil {
		return nil, o.err
	}
	if waitErr != nil {
		return nil, errors.Wrap(waitErr, "FSM execution failed")
	}
	if o == nil || o.result == nil {
		return nil, fmt.Errorf("run %s finished without a result", in.RunKey)
	}
	return o.result, nil
}

func (m *Machine) record(runKey string, res *installer.Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[runKey] = &outcome{result: res, err: err}
}

func (m *Machine) take(runKey string) *outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.outcomes[runKey]
	delete(m.outcomes, runKey)
	return o
}
