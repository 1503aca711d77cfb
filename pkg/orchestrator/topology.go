package orchestrator

import "github.com/user/vidpipe/pkg/ports"

// Topology is the shape of the pipeline, selected once at setup.
type Topology int

const (
	// TopologySimple feeds source frames straight to the encoder.
	TopologySimple Topology = iota
	// TopologyVPP preprocesses each frame into exactly one output.
	TopologyVPP
	// TopologyVPPRateExpansion preprocesses each frame into two outputs.
	TopologyVPPRateExpansion
	// TopologyHints is TopologySimple with scene change hints.
	TopologyHints
	// TopologyVPPHints is TopologyVPP with scene change hints.
	TopologyVPPHints
	// TopologyVPPRateExpansionHints is TopologyVPPRateExpansion with scene change hints.
	TopologyVPPRateExpansionHints
)

func selectTopology(cfg Config, in ports.FrameInfo) Topology {
	var t Topology
	switch {
	case !cfg.vppRequested():
		t = TopologySimple
	case cfg.FrameRateX2 || (cfg.Deinterlace == ports.DeinterlaceBob && in.PicStruct.Interlaced()):
		t = TopologyVPPRateExpansion
	default:
		t = TopologyVPP
	}
	if cfg.SceneChange {
		t += TopologyHints
	}
	return t
}

// VPP reports whether frames go through the VPP stage.
func (t Topology) VPP() bool {
	return t != TopologySimple && t != TopologyHints
}

// Expands reports whether one input frame yields two encoded pictures.
func (t Topology) Expands() bool {
	return t == TopologyVPPRateExpansion || t == TopologyVPPRateExpansionHints
}

// Hints reports whether scene change analysis runs ahead of the encoder.
func (t Topology) Hints() bool {
	return t >= TopologyHints
}

func (t Topology) String() string {
	switch t {
	case TopologySimple:
		return "simple"
	case TopologyVPP:
		return "vpp"
	case TopologyVPPRateExpansion:
		return "vpp-x2"
	case TopologyHints:
		return "hints"
	case TopologyVPPHints:
		return "vpp+hints"
	case TopologyVPPRateExpansionHints:
		return "vpp-x2+hints"
	default:
		return "unknown"
	}
}

// State is the phase of the main loop.
type State int

const (
	// StateFill primes the look-ahead buffer.
	StateFill State = iota
	// StateSteady submits one source frame per iteration.
	StateSteady
	// StateFlushVPP drains frames buffered in the VPP stage.
	StateFlushVPP
	// StateFlushEncode drains frames buffered in the encoder.
	StateFlushEncode
	// StateDone waits for the remaining tasks.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFill:
		return "fill"
	case StateSteady:
		return "steady"
	case StateFlushVPP:
		return "flush-vpp"
	case StateFlushEncode:
		return "flush-encode"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
