package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sacha-escudier/marangoni-spreading/internal/config"
	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/imaging"
	"github.com/sacha-escudier/marangoni-spreading/internal/pipeline"
	"github.com/sacha-escudier/marangoni-spreading/internal/tiffstack"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "frames_info", "particle_batch").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Overlays the arguments on a copy of the server configuration
//  3. Validates the resulting configuration
//  4. Runs the pipeline stage
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	switch name {
	// Frames
	case "frames_extract":
		return s.handleFramesExtract(ctx, args)
	case "frames_info":
		return s.handleFramesInfo(args)

	// Detection
	case "particle_locate":
		return s.handleParticleLocate(args)
	case "particle_batch":
		return s.handleParticleBatch(ctx, args)

	// Tracking and export
	case "particle_track":
		return s.handleParticleTrack(ctx, args)
	case "trajectories_export":
		return s.handleTrajectoriesExport(ctx, args)
	case "stack_info":
		return s.handleStackInfo(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// configured returns a pipeline whose configuration is the server's with
// apply run on a copy, after validation. Each tool call gets its own image
// cache.
func (s *Server) configured(apply func(*config.Config)) (*pipeline.Pipeline, error) {
	cfg := *s.pipeline.Config()
	apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return s.pipeline.WithConfig(&cfg).WithCache(imaging.NewImageCache()), nil
}

// === Argument overlays ===

type detectArgs struct {
	Pattern  *string  `json:"pattern"`
	Diameter *int     `json:"diameter"`
	MinMass  *float64 `json:"min_mass"`
	Invert   *bool    `json:"invert"`
}

func (a detectArgs) apply(cfg *config.Config) {
	if a.Pattern != nil {
		cfg.Detect.Pattern = *a.Pattern
	}
	if a.Diameter != nil {
		cfg.Detect.Diameter = *a.Diameter
	}
	if a.MinMass != nil {
		cfg.Detect.MinMass = *a.MinMass
	}
	if a.Invert != nil {
		cfg.Detect.Invert = *a.Invert
	}
}

type trackArgs struct {
	Method      *string  `json:"method"`
	SearchRange *float64 `json:"search_range"`
	Memory      *int     `json:"memory"`
	MinLength   *int     `json:"min_length"`
	SizeBound   *string  `json:"size_bound"`
	MaxSize     *float64 `json:"max_size"`
	MaxEcc      *float64 `json:"max_ecc"`
	Order       *string  `json:"order"`
}

func (a trackArgs) apply(cfg *config.Config) {
	if a.Method != nil {
		cfg.Link.Method = *a.Method
	}
	if a.SearchRange != nil {
		cfg.Link.SearchRange = *a.SearchRange
	}
	if a.Memory != nil {
		cfg.Link.Memory = *a.Memory
	}
	if a.MinLength != nil {
		cfg.Filter.MinLength = *a.MinLength
	}
	if a.SizeBound != nil {
		cfg.Filter.SizeBound = *a.SizeBound
	}
	if a.MaxSize != nil {
		cfg.Filter.MaxSize = *a.MaxSize
	}
	if a.MaxEcc != nil {
		cfg.Filter.MaxEcc = *a.MaxEcc
	}
	if a.Order != nil {
		cfg.Filter.Order = *a.Order
	}
}

// === Frame Handlers ===

type framesExtractArgs struct {
	Source    string `json:"source"`
	OutputDir string `json:"output_dir"`
	Grayscale *bool  `json:"grayscale"`
}

func (s *Server) handleFramesExtract(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a framesExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Source == "" {
		return nil, errors.New("source is required")
	}
	p, err := s.configured(func(cfg *config.Config) {
		if a.Grayscale != nil {
			cfg.Extract.Grayscale = *a.Grayscale
		}
	})
	if err != nil {
		return nil, err
	}
	return p.Extract(ctx, a.Source, a.OutputDir)
}

type framesInfoArgs struct {
	Dir     string  `json:"dir"`
	Pattern *string `json:"pattern"`
}

func (s *Server) handleFramesInfo(args json.RawMessage) (interface{}, error) {
	var a framesInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.configured(detectArgs{Pattern: a.Pattern}.apply)
	if err != nil {
		return nil, err
	}
	seq, err := p.Frames(a.Dir)
	if err != nil {
		return nil, err
	}
	return seq.Info()
}

// === Detection Handlers ===

type particleLocateArgs struct {
	Dir   string `json:"dir"`
	Frame *int   `json:"frame"`
	detectArgs
}

func (s *Server) handleParticleLocate(args json.RawMessage) (interface{}, error) {
	var a particleLocateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.configured(a.detectArgs.apply)
	if err != nil {
		return nil, err
	}
	frame := p.Config().Explore.FrameNumber
	if a.Frame != nil {
		frame = *a.Frame
	}
	return p.Locate(a.Dir, frame)
}

type particleBatchArgs struct {
	Dir     string `json:"dir"`
	Save    bool   `json:"save"`
	SaveDir string `json:"save_dir"`
	detectArgs
}

func (s *Server) handleParticleBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a particleBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.configured(a.detectArgs.apply)
	if err != nil {
		return nil, err
	}
	return p.Batch(ctx, a.Dir, a.Save, a.SaveDir)
}

// === Tracking Handlers ===

type particleTrackArgs struct {
	RunID string `json:"run_id"`
	// Features are tracked directly, without the store, when present.
	Features []detection.Feature `json:"features"`
	Diameter *int                `json:"diameter"`
	MinMass  *float64            `json:"min_mass"`
	// SubtractDrift removes the collective drift from the returned inline
	// trajectories.
	SubtractDrift bool `json:"subtract_drift"`
	trackArgs
}

type inlineTrackResult struct {
	*pipeline.TrackReport
	Trajectories []tracking.Point `json:"trajectories"`
}

func (s *Server) handleParticleTrack(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a particleTrackArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.configured(func(cfg *config.Config) {
		a.trackArgs.apply(cfg)
		detectArgs{Diameter: a.Diameter, MinMass: a.MinMass}.apply(cfg)
	})
	if err != nil {
		return nil, err
	}
	if a.Features != nil {
		report, err := p.TrackFeatures(a.Features)
		if err != nil {
			return nil, err
		}
		points := report.Result.Filtered
		if a.SubtractDrift {
			points = tracking.SubtractDrift(points, report.Drift)
		}
		return inlineTrackResult{TrackReport: report, Trajectories: points}, nil
	}
	return p.Track(ctx, a.RunID)
}

type trajectoriesExportArgs struct {
	RunID     string   `json:"run_id"`
	FramesDir string   `json:"frames_dir"`
	OutputDir string   `json:"output_dir"`
	Scale     *float64 `json:"scale"`
	Labels    *bool    `json:"labels"`
}

func (s *Server) handleTrajectoriesExport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a trajectoriesExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.configured(func(cfg *config.Config) {
		if a.Scale != nil {
			cfg.Render.Scale = *a.Scale
		}
		if a.Labels != nil {
			cfg.Render.Labels = *a.Labels
		}
	})
	if err != nil {
		return nil, err
	}
	return p.Export(ctx, a.RunID, a.FramesDir, a.OutputDir)
}

type stackInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleStackInfo(args json.RawMessage) (interface{}, error) {
	var a stackInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return tiffstack.Stat(a.Path)
}
