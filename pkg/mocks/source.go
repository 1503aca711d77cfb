package mocks

import (
	"sync"

	"github.com/user/vidpipe/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
//
// By default it produces Frames frames, stamping each with its index and
// filling the luma plane with the value returned by Luma (zero if unset).
type FrameSource struct {
	mu sync.Mutex

	Info   ports.FrameInfo
	Frames int
	Luma   func(index int) uint8

	LoadNextFrameFunc func(s *ports.Surface) error
	CloseFunc         func() error

	// Recorded calls for verification
	Loaded      int
	CloseCalled bool
}

func (m *FrameSource) FrameInfo() ports.FrameInfo {
	return m.Info
}

func (m *FrameSource) LoadNextFrame(s *ports.Surface) error {
	if m.LoadNextFrameFunc != nil {
		return m.LoadNextFrameFunc(s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Loaded >= m.Frames {
		return ports.ErrEndOfStream
	}
	if m.Luma != nil {
		v := m.Luma(m.Loaded)
		for i := range s.Data.Y {
			s.Data.Y[i] = v
		}
	}
	s.Timestamp = int64(m.Loaded)
	m.Loaded++
	return nil
}

func (m *FrameSource) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var _ ports.FrameSource = (*FrameSource)(nil)

// BitstreamWriter is a mock implementation of ports.BitstreamWriter that
// keeps a copy of every frame.
type BitstreamWriter struct {
	mu sync.Mutex

	WriteNextFrameFunc func(bs *ports.Bitstream) error
	CloseFunc          func() error

	// Recorded calls for verification
	Frames      []WrittenFrame
	CloseCalled bool
}

// WrittenFrame is one frame passed to WriteNextFrame.
type WrittenFrame struct {
	Data      []byte
	FrameType ports.FrameType
	Timestamp int64
}

func (m *BitstreamWriter) WriteNextFrame(bs *ports.Bitstream) error {
	if m.WriteNextFrameFunc != nil {
		if err := m.WriteNextFrameFunc(bs); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, WrittenFrame{
		Data:      append([]byte(nil), bs.Bytes()...),
		FrameType: bs.FrameType,
		Timestamp: bs.Timestamp,
	})
	return nil
}

func (m *BitstreamWriter) Close() error {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Timestamps returns the timestamps of the written frames in order.
func (m *BitstreamWriter) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := make([]int64, len(m.Frames))
	for i, f := range m.Frames {
		ts[i] = f.Timestamp
	}
	return ts
}

var _ ports.BitstreamWriter = (*BitstreamWriter)(nil)
