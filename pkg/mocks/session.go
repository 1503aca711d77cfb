// Package mocks provides mock implementations for testing.
package mocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/syncpoint"
)

// Session is a mock implementation of ports.Session.
//
// Without overrides every submission completes immediately: VPP copies the
// input timestamp to the output, encode writes "frame <timestamp>" into the
// bitstream. Sync points come from Table, so tests can also resolve them by
// hand from a custom Submit func.
type Session struct {
	mu sync.Mutex

	Table *syncpoint.Table

	QuerySurfaceCountFunc func(params ports.Params) (ports.SurfaceRequest, error)
	InitFunc              func(params ports.Params) error
	SubmitVPPFunc         func(in, out *ports.Surface) (ports.Status, ports.SyncPoint)
	SubmitEncodeFunc      func(ctrl *ports.EncodeControl, surf *ports.Surface, bs *ports.Bitstream) (ports.Status, ports.SyncPoint)
	WaitFunc              func(sp ports.SyncPoint, timeout time.Duration) ports.Status
	OutputParamsFunc      func() (ports.OutputParams, error)
	CloseFunc             func() error

	// Recorded calls for verification
	Params      *ports.Params
	VPPCalls    []VPPCall
	EncodeCalls []EncodeCall
	WaitCalls   []ports.SyncPoint
	CloseCalled bool
}

// VPPCall records a call to SubmitVPP. In is nil for a flush.
type VPPCall struct {
	In  *ports.Surface
	Out *ports.Surface
}

// EncodeCall records a call to SubmitEncode.
type EncodeCall struct {
	Control   ports.EncodeControl
	Flush     bool
	Timestamp int64
}

// NewSession creates a mock session with its own sync point table.
func NewSession() *Session {
	return &Session{Table: syncpoint.NewTable()}
}

func (m *Session) QuerySurfaceCount(params ports.Params) (ports.SurfaceRequest, error) {
	if m.QuerySurfaceCountFunc != nil {
		return m.QuerySurfaceCountFunc(params)
	}
	req := ports.SurfaceRequest{EncodeIn: 1}
	if params.VPP != nil {
		req.VPPIn = 1
		req.VPPOut = 1
	}
	return req, nil
}

func (m *Session) Init(params ports.Params) error {
	m.mu.Lock()
	m.Params = &params
	m.mu.Unlock()

	if m.InitFunc != nil {
		return m.InitFunc(params)
	}
	return nil
}

func (m *Session) SubmitVPP(in, out *ports.Surface) (ports.Status, ports.SyncPoint) {
	m.mu.Lock()
	m.VPPCalls = append(m.VPPCalls, VPPCall{In: in, Out: out})
	m.mu.Unlock()

	if m.SubmitVPPFunc != nil {
		return m.SubmitVPPFunc(in, out)
	}
	if in == nil {
		return ports.StatusMoreData, ports.SyncPoint{}
	}
	out.Timestamp = in.Timestamp
	sp := m.Table.Issue()
	m.Table.Resolve(sp, ports.StatusOK)
	return ports.StatusOK, sp
}

func (m *Session) SubmitEncode(ctrl *ports.EncodeControl, surf *ports.Surface, bs *ports.Bitstream) (ports.Status, ports.SyncPoint) {
	call := EncodeCall{Flush: surf == nil}
	if ctrl != nil {
		call.Control = *ctrl
	}
	if surf != nil {
		call.Timestamp = surf.Timestamp
	}
	m.mu.Lock()
	m.EncodeCalls = append(m.EncodeCalls, call)
	m.mu.Unlock()

	if m.SubmitEncodeFunc != nil {
		return m.SubmitEncodeFunc(ctrl, surf, bs)
	}
	if surf == nil {
		return ports.StatusMoreData, ports.SyncPoint{}
	}
	FillBitstream(bs, surf.Timestamp)
	if ctrl != nil && ctrl.FrameType != ports.FrameTypeUnknown {
		bs.FrameType = ctrl.FrameType
	}
	sp := m.Table.Issue()
	m.Table.Resolve(sp, ports.StatusOK)
	return ports.StatusOK, sp
}

func (m *Session) Wait(sp ports.SyncPoint, timeout time.Duration) ports.Status {
	m.mu.Lock()
	m.WaitCalls = append(m.WaitCalls, sp)
	m.mu.Unlock()

	if m.WaitFunc != nil {
		return m.WaitFunc(sp, timeout)
	}
	return m.Table.Wait(sp, timeout)
}

func (m *Session) OutputParams() (ports.OutputParams, error) {
	if m.OutputParamsFunc != nil {
		return m.OutputParamsFunc()
	}
	return ports.OutputParams{Codec: ports.CodecMJPEG, BufferSize: 1024}, nil
}

func (m *Session) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// EncodedTimestamps returns the timestamps of non-flush encode calls in call order.
func (m *Session) EncodedTimestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts []int64
	for _, c := range m.EncodeCalls {
		if !c.Flush {
			ts = append(ts, c.Timestamp)
		}
	}
	return ts
}

// FillBitstream writes the payload the default encoder produces for ts.
func FillBitstream(bs *ports.Bitstream, ts int64) {
	payload := fmt.Sprintf("frame %d", ts)
	bs.Length = copy(bs.Data, payload)
	bs.Timestamp = ts
	bs.FrameType = ports.FrameTypeP
}

var _ ports.Session = (*Session)(nil)
