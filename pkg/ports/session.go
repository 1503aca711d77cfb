package ports

import (
	"time"
)

// SyncPoint is an opaque completion token for an asynchronous stage call.
// The zero value means "no operation".
type SyncPoint struct {
	id uint64
}

// NewSyncPoint wraps an id issued by a resolution table.
func NewSyncPoint(id uint64) SyncPoint {
	return SyncPoint{id: id}
}

// ID returns the token id.
func (sp SyncPoint) ID() uint64 {
	return sp.id
}

// IsZero reports whether the token refers to no operation.
func (sp SyncPoint) IsZero() bool {
	return sp.id == 0
}

// FrameType is a coding type requested for, or reported by, an encode call.
type FrameType int

const (
	// FrameTypeUnknown leaves the decision to the encoder.
	FrameTypeUnknown FrameType = iota
	// FrameTypeI is an intra frame.
	FrameTypeI
	// FrameTypeIDR is an instantaneous decoder refresh frame.
	FrameTypeIDR
	// FrameTypeP is a predicted frame.
	FrameTypeP
	// FrameTypeB is a bi-predicted frame.
	FrameTypeB
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameTypeI:
		return "I"
	case FrameTypeIDR:
		return "IDR"
	case FrameTypeP:
		return "P"
	case FrameTypeB:
		return "B"
	default:
		return "?"
	}
}

// Key reports whether the frame type starts a new random access point.
func (t FrameType) Key() bool {
	return t == FrameTypeI || t == FrameTypeIDR
}

// EncodeControl carries per-call overrides for one encode submission.
type EncodeControl struct {
	FrameType FrameType // Forced frame type, FrameTypeUnknown for none
	QPDelta   int       // Quantizer bias relative to the configured QP
}

// IsZero reports whether the control carries no override.
func (c EncodeControl) IsZero() bool {
	return c.FrameType == FrameTypeUnknown && c.QPDelta == 0
}

// Bitstream is an output buffer for one encoded frame.
// Data is allocated to its full capacity; Length bytes of it are valid.
type Bitstream struct {
	Data      []byte
	Length    int
	FrameType FrameType
	Timestamp int64
}

// NewBitstream allocates a bitstream with the given capacity.
func NewBitstream(size int) *Bitstream {
	return &Bitstream{Data: make([]byte, size)}
}

// Bytes returns the valid part of the buffer.
func (b *Bitstream) Bytes() []byte {
	return b.Data[:b.Length]
}

// Capacity returns the maximum number of bytes the buffer can hold.
func (b *Bitstream) Capacity() int {
	return len(b.Data)
}

// Reset marks the buffer empty. The allocation is kept.
func (b *Bitstream) Reset() {
	b.Length = 0
	b.FrameType = FrameTypeUnknown
	b.Timestamp = 0
}

// Codec identifies the bitstream format produced by a session.
type Codec string

const (
	// CodecAVC is H.264 Annex B.
	CodecAVC Codec = "avc"
	// CodecHEVC is H.265 Annex B.
	CodecHEVC Codec = "hevc"
	// CodecMJPEG is a sequence of JPEG images.
	CodecMJPEG Codec = "mjpeg"
)

// RateControl selects the rate control mode.
type RateControl string

const (
	// RateControlCQP uses a constant quantizer.
	RateControlCQP RateControl = "cqp"
	// RateControlCBR targets a constant bitrate.
	RateControlCBR RateControl = "cbr"
	// RateControlVBR targets a variable bitrate.
	RateControlVBR RateControl = "vbr"
)

// DeinterlaceMode selects VPP deinterlacing.
type DeinterlaceMode string

const (
	// DeinterlaceNone keeps fields woven.
	DeinterlaceNone DeinterlaceMode = "none"
	// DeinterlaceBob outputs each field as a frame, doubling the frame rate.
	DeinterlaceBob DeinterlaceMode = "bob"
)

// VPPParams configures the preprocessing stage.
type VPPParams struct {
	Out         FrameInfo
	Deinterlace DeinterlaceMode
	FrameRateX2 bool // Double the frame rate by repeating frames
	Denoise     int  // 0 disables, 1-100 strength
}

// EncodeParams configures the encode stage.
type EncodeParams struct {
	Codec       Codec
	RateControl RateControl
	QP          int
	BitrateKbps int
	GOPLength   int
	AsyncDepth  int
}

// Params is the full set of stage parameters for a session.
type Params struct {
	In     FrameInfo
	VPP    *VPPParams // nil disables preprocessing
	Encode EncodeParams
}

// SurfaceRequest reports the minimum surfaces each stage needs to produce one output.
type SurfaceRequest struct {
	EncodeIn int
	VPPIn    int
	VPPOut   int
}

// OutputParams reports the negotiated output of the encode stage.
type OutputParams struct {
	Codec      Codec
	Info       FrameInfo
	BufferSize int // Required bitstream size in bytes
}

// Session abstracts the hardware-accelerated VPP and encode stages.
//
// Submit calls are asynchronous: a successful call returns a SyncPoint that
// resolves when the output is ready. A call reporting StatusDeviceBusy
// returns a zero SyncPoint and must be retried.
type Session interface {
	// QuerySurfaceCount returns how many surfaces each stage needs.
	QuerySurfaceCount(params Params) (SurfaceRequest, error)

	// Init validates params and prepares the stages.
	Init(params Params) error

	// SubmitVPP preprocesses in into out. A nil in flushes buffered frames.
	// When one input yields two outputs, out.Timestamp is twice the input
	// timestamp plus the output phase, otherwise it is the input timestamp.
	SubmitVPP(in, out *Surface) (Status, SyncPoint)

	// SubmitEncode encodes surf into bs. A nil surf flushes buffered frames.
	SubmitEncode(ctrl *EncodeControl, surf *Surface, bs *Bitstream) (Status, SyncPoint)

	// Wait blocks until the operation completes or the timeout expires.
	Wait(sp SyncPoint, timeout time.Duration) Status

	// OutputParams returns the negotiated output parameters.
	OutputParams() (OutputParams, error)

	// Close releases the session.
	Close() error
}
