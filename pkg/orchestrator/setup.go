package orchestrator

import (
	"errors"

	"github.com/user/vidpipe/pkg/lookahead"
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
	"github.com/user/vidpipe/pkg/surface"
	"github.com/user/vidpipe/pkg/taskpool"
)

// run holds the resources of one pipeline execution.
type run struct {
	cfg      Config
	topology Topology
	session  ports.Session
	status   *Status
	logger   ports.Logger

	sourcePool *surface.Pool // Surfaces filled by the source
	encodePool *surface.Pool // VPP outputs, nil without VPP
	tasks      *taskpool.Pool
	lookahead  *lookahead.Buffer
	feed       feeder
	hints      *hintTable
}

func (r *run) close() {
	if r.tasks != nil {
		r.tasks.Close()
	}
}

// setup translates the configuration into session parameters, initializes
// the session and sizes every pool from its surface requirements.
func (o *Orchestrator) setup(cfg Config, status *Status) (*run, error) {
	in := o.source.FrameInfo()
	topology := selectTopology(cfg, in)
	params := buildParams(cfg, in, topology)
	status.Topology = topology
	status.InputFrameRate = in.FrameRate()

	req, err := o.session.QuerySurfaceCount(params)
	if err != nil {
		return nil, stageError("setup", "QuerySurfaceCount", err)
	}
	if err := o.session.Init(params); err != nil {
		return nil, stageError("setup", "Init", err)
	}
	out, err := o.session.OutputParams()
	if err != nil {
		return nil, stageError("setup", "OutputParams", err)
	}
	status.OutputCodec = out.Codec
	status.OutputFrameRate = out.Info.FrameRate()
	if status.OutputFrameRate == 0 {
		status.OutputFrameRate = outputInfo(params).FrameRate()
	}

	r := &run{
		cfg:      cfg,
		topology: topology,
		session:  o.session,
		status:   status,
		logger:   o.logger.WithComponent("orchestrator"),
		hints:    newHintTable(topology.Expands()),
	}

	depth := cfg.AsyncDepth
	if topology.VPP() {
		r.sourcePool, err = surface.NewPool("vpp-in", surface.Size(req.VPPIn, depth, cfg.LookaheadDepth), in)
		if err != nil {
			return nil, stageError("setup", "NewPool", err)
		}
		r.encodePool, err = surface.NewPool("encode-in", surface.Size(req.EncodeIn+req.VPPOut, depth, 0), params.VPP.Out)
	} else {
		r.sourcePool, err = surface.NewPool("encode-in", surface.Size(req.EncodeIn, depth, cfg.LookaheadDepth), in)
	}
	if err != nil {
		return nil, stageError("setup", "NewPool", err)
	}

	budget, err := surface.CheckBudget(cfg.MemoryFraction, r.sourcePool, r.encodePool)
	switch {
	case errors.Is(err, surface.ErrOverBudget):
		r.logger.Warn("Surface pools need %d MiB, more than %.0f%% of available memory", budget.RequiredBytes>>20, cfg.MemoryFraction*100)
	case err != nil:
		r.logger.Debug("Memory budget check skipped: %s", err)
	default:
		r.logger.Debug("Surface pools use %d MiB of %d MiB available", budget.RequiredBytes>>20, budget.AvailableBytes>>20)
	}

	bufferSize := out.BufferSize
	if bufferSize <= 0 {
		bufferSize = surface.FrameBytes(outputInfo(params))
	}
	writer := &statusWriter{w: o.writer, status: status}
	r.tasks, err = taskpool.New(cfg.TaskPoolSize, bufferSize, writer, o.session, o.logger)
	if err != nil {
		return nil, stageError("setup", "taskpool.New", err)
	}
	r.tasks.SetSyncTimeout(cfg.SyncTimeout)

	if aware, ok := o.writer.(ports.OutputAware); ok {
		if err := aware.SetOutputParams(out); err != nil {
			r.close()
			return nil, stageError("setup", "SetOutputParams", err)
		}
	}

	if topology.Hints() {
		bob := params.VPP != nil && params.VPP.Deinterlace == ports.DeinterlaceBob && in.PicStruct.Interlaced()
		analyzer := scenechange.New(cfg.SceneChangeConfig, bob)
		r.lookahead, err = lookahead.New(o.source, cfg.LookaheadDepth, analyzer, o.logger)
		if err != nil {
			r.close()
			return nil, stageError("setup", "lookahead.New", err)
		}
		r.feed = &lookaheadFeeder{buf: r.lookahead, pool: r.sourcePool, timeout: cfg.SurfaceTimeout}
	} else {
		r.feed = &directFeeder{source: o.source, pool: r.sourcePool, timeout: cfg.SurfaceTimeout}
	}

	r.logger.Debug("Pools: %s %d, %s %d, tasks %d of %d bytes",
		r.sourcePool.Name(), r.sourcePool.Len(), poolName(r.encodePool), poolLen(r.encodePool),
		r.tasks.Size(), bufferSize)
	return r, nil
}

// buildParams derives the stage parameters from the configuration.
func buildParams(cfg Config, in ports.FrameInfo, topology Topology) ports.Params {
	params := ports.Params{
		In: in,
		Encode: ports.EncodeParams{
			Codec:       cfg.Codec,
			RateControl: cfg.RateControl,
			QP:          cfg.QP,
			BitrateKbps: cfg.BitrateKbps,
			GOPLength:   cfg.GOPLength,
			AsyncDepth:  cfg.AsyncDepth,
		},
	}
	if !topology.VPP() {
		return params
	}

	vw, vh := in.Visible()
	if cfg.Width > 0 {
		vw = cfg.Width
	}
	if cfg.Height > 0 {
		vh = cfg.Height
	}
	out := ports.FrameInfo{
		Width:      align16(vw),
		Height:     align16(vh),
		CropW:      vw,
		CropH:      vh,
		FrameRateN: in.FrameRateN,
		FrameRateD: in.FrameRateD,
		PicStruct:  in.PicStruct,
	}
	bob := cfg.Deinterlace == ports.DeinterlaceBob && in.PicStruct.Interlaced()
	if bob {
		out.PicStruct = ports.PicStructProgressive
	}
	if topology.Expands() {
		out.FrameRateN *= 2
	}
	params.VPP = &ports.VPPParams{
		Out:         out,
		Deinterlace: cfg.Deinterlace,
		FrameRateX2: cfg.FrameRateX2,
		Denoise:     cfg.Denoise,
	}
	return params
}

func outputInfo(params ports.Params) ports.FrameInfo {
	if params.VPP != nil {
		return params.VPP.Out
	}
	return params.In
}

func align16(v int) int {
	return (v + 15) &^ 15
}

func poolName(p *surface.Pool) string {
	if p == nil {
		return "-"
	}
	return p.Name()
}

func poolLen(p *surface.Pool) int {
	if p == nil {
		return 0
	}
	return p.Len()
}
