package fsm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/macwinusb/winusb/pkg/installer"
	"github.com/macwinusb/winusb/pkg/payload"
	"github.com/superfly/fsm"
)

func inputs(msg *BurnRequest) installer.Inputs {
	return installer.Inputs{
		RunKey:      msg.RunKey,
		SourceImage: msg.SourceImage,
		SHA256:      msg.SHA256,
		Device:      msg.Device,
	}
}

// begin checks the retry limit and returns the accumulated response
func (m *Machine) begin(ctx context.Context, state string, req *fsm.Request[BurnRequest, BurnResponse]) (*BurnResponse, error) {
	slog.Info("fsm_state_"+state, "run_key", req.Msg.RunKey)

	resp := req.W.Msg
	if resp == nil {
		resp = &BurnResponse{}
	}

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		err := fmt.Errorf("max retries (%d) exceeded in %s", m.maxRetries, state)
		slog.Error("max_retries_exceeded", "run_key", req.Msg.RunKey, "state", state)
		return nil, m.fail(ctx, req, resp.MountPoint, err)
	}
	return resp, nil
}

// fail releases any mounted image, records cause and stops the FSM
func (m *Machine) fail(ctx context.Context, req *fsm.Request[BurnRequest, BurnResponse], mountPoint string, cause error) error {
	err := m.pipeline.Abort(ctx, mountPoint, cause)
	if resp := req.W.Msg; resp != nil {
		resp.Status = installer.StatusFailed
		resp.ErrorMessage = err.Error()
	}
	m.record(req.Msg.RunKey, nil, err)
	return fsm.Abort(err)
}

// handleMount opens the run record and attaches the source image
func (m *Machine) handleMount(ctx context.Context, req *fsm.Request[BurnRequest, BurnResponse]) (*fsm.Response[BurnResponse], error) {
	resp, err := m.begin(ctx, StateMount, req)
	if err != nil {
		return nil, err
	}

	in := inputs(req.Msg)
	m.pipeline.Begin(in)

	mountPoint, err := m.pipeline.Mount(ctx, in)
	if err != nil {
		return nil, m.fail(ctx, req, "", err)
	}
	resp.MountPoint = mountPoint

	return fsm.NewResponse(resp), nil
}

// handlePrepare erases the target device
func (m *Machine) handlePrepare(ctx context.Context, req *fsm.Request[BurnRequest, BurnResponse]) (*fsm.Response[BurnResponse], error) {
	resp, err := m.begin(ctx, StatePrepare, req)
	if err != nil {
		return nil, err
	}

	if err := m.pipeline.Prepare(ctx, inputs(req.Msg)); err != nil {
		return nil, m.fail(ctx, req, resp.MountPoint, err)
	}

	return fsm.NewResponse(resp), nil
}

// handleCopy mirrors the image tree minus the payload
func (m *Machine) handleCopy(ctx context.Context, req *fsm.Request[BurnRequest, BurnResponse]) (*fsm.Response[BurnResponse], error) {
	resp, err := m.begin(ctx, StateCopy, req)
	if err != nil {
		return nil, err
	}

	if err := m.pipeline.CopyTree(ctx, resp.MountPoint); err != nil {
		return nil, m.fail(ctx, req, resp.MountPoint, err)
	}

	return fsm.NewResponse(resp), nil
}

// handlePayload copies or splits the install image
func (m *Machine) handlePayload(ctx context.Context, req *fsm.Request[BurnRequest, BurnResponse]) (*fsm.Response[BurnResponse], error) {
	resp, err := m.begin(ctx, StatePayload, req)
	if err != nil {
		return nil, err
	}

	res, warning, err := m.pipeline.Payload(ctx, resp.MountPoint)
	if err != nil {
		return nil, m.fail(ctx, req, resp.MountPoint, err)
	}
	resp.PayloadAction = string(res.Action)
	resp.PayloadSize = res.Size
	resp.PayloadDest = res.Dest
	if warning != "" {
		resp.Warnings = append(resp.Warnings, warning)
	}

	return fsm.NewResponse(resp), nil
}

// handleRelease detaches the source image and completes the run. A failed
// detach here is reported as a warning, not a failure.
func (m *Machine) handleRelease(ctx context.Context, req *fsm.Request[BurnRequest, BurnResponse]) (*fsm.Response[BurnResponse], error) {
	resp, err := m.begin(ctx, StateRelease, req)
	if err != nil {
		return nil, err
	}

	if err := m.pipeline.Release(ctx, resp.MountPoint); err != nil {
		resp.DetachFailed = true
		resp.Warnings = append(resp.Warnings, err.Error())
	}

	res := &installer.Result{
		Inputs:     inputs(req.Msg),
		MountPoint: resp.MountPoint,
		Payload: payload.Result{
			Action: payload.Action(resp.PayloadAction),
			Size:   resp.PayloadSize,
			Dest:   resp.PayloadDest,
		},
		Warnings:     resp.Warnings,
		DetachFailed: resp.DetachFailed,
	}
	m.pipeline.Finish(res)

	resp.Status = installer.StatusComplete
	if resp.DetachFailed {
		resp.Status = installer.StatusDetachFailed
	}
	m.record(req.Msg.RunKey, res, nil)

	slog.Info("fsm_complete", "run_key", req.Msg.RunKey, "status", resp.Status, "payload", resp.PayloadAction)
	return fsm.NewResponse(resp), nil
}
