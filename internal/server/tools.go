package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

// detectionProps are the detection overrides shared by the locate and batch
// tools. Omitted values come from the server configuration.
func detectionProps() map[string]interface{} {
	return map[string]interface{}{
		"pattern":  prop("string", "Glob selecting frame files inside dir, e.g. *.jpg"),
		"diameter": prop("integer", "Expected particle footprint in pixels. Must be odd"),
		"min_mass": prop("number", "Discard candidates with integrated brightness at or below this value"),
		"invert":   prop("boolean", "Particles are darker than the background"),
	}
}

func withProps(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frames
		{
			Name:        "frames_extract",
			Description: "Decode a video into one image per frame, named frame_NNNN with zero-padded indices. Returns the frame count and dimensions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source":     prop("string", "Absolute path to the video file"),
					"output_dir": prop("string", "Directory to write frames into. Defaults to the configured frames directory"),
					"grayscale":  prop("boolean", "Write single-channel frames"),
				},
				"required": []string{"source"},
			},
		},
		{
			Name:        "frames_info",
			Description: "Summarize a frame directory: frame count, index range, dimensions and colour mode.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir":     prop("string", "Frame directory. Defaults to the configured frames directory"),
					"pattern": prop("string", "Glob selecting frame files"),
				},
			},
		},

		// Detection
		{
			Name:        "particle_locate",
			Description: "Detect particles on a single frame with the given diameter and min mass. Use this to tune parameters before a batch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProps(detectionProps(), map[string]interface{}{
					"dir":   prop("string", "Frame directory. Defaults to the configured frames directory"),
					"frame": prop("integer", "Frame position in the sequence; negative counts from the end. Default -1"),
				}),
			},
		},
		{
			Name:        "particle_batch",
			Description: "Detect particles on every frame of a directory and store them as a new run. Optionally writes an annotated multi-page TIFF.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProps(detectionProps(), map[string]interface{}{
					"dir":      prop("string", "Frame directory. Defaults to the configured frames directory"),
					"save":     prop("boolean", "Write detected_features.tif into save_dir"),
					"save_dir": prop("string", "Directory for the annotated stack. Required when save is true"),
				}),
			},
		},

		// Tracking and export
		{
			Name:        "particle_track",
			Description: "Link detections of a stored run into trajectories, drop short trajectories and filter by mass, size and eccentricity. Returns particle counts after each step.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id":         prop("string", "Run to track, or a unique id prefix. Defaults to the latest run"),
					"features":       prop("array", "Track these features directly instead of a stored run"),
					"subtract_drift": prop("boolean", "Remove collective drift from the returned inline trajectories"),
					"diameter":       prop("integer", "Detection diameter, used by the diameter size bound"),
					"min_mass":       prop("number", "Minimum mean mass of a kept trajectory"),
					"method":         map[string]interface{}{"type": "string", "enum": []string{"hungarian", "greedy"}, "description": "Frame-to-frame assignment"},
					"search_range":   prop("number", "Largest displacement in pixels between linked detections"),
					"memory":         prop("integer", "Frames a particle may vanish for and keep its id"),
					"min_length":     prop("integer", "Drop trajectories present in fewer frames"),
					"size_bound":     map[string]interface{}{"type": "string", "enum": []string{"diameter", "minmass", "fixed"}, "description": "Upper bound on mean particle size"},
					"max_size":       prop("number", "Size limit used by the fixed bound"),
					"max_ecc":        prop("number", "Largest mean eccentricity kept"),
					"order":          map[string]interface{}{"type": "string", "enum": []string{"stubs-first", "attributes-first"}, "description": "Which filter runs first"},
				},
			},
		},
		{
			Name:        "trajectories_export",
			Description: "Render the trajectories of a tracked run over its frames into detected_trajectories.tif, one page per frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id":     prop("string", "Run to export. Defaults to the latest run"),
					"frames_dir": prop("string", "Frame directory. Defaults to the directory the run was detected in"),
					"output_dir": prop("string", "Directory for the stack. Required unless configured"),
					"scale":      prop("number", "Upscale factor for the rendered pages. Default 1.0"),
					"labels":     prop("boolean", "Draw particle ids"),
				},
			},
		},
		{
			Name:        "stack_info",
			Description: "Report the page count and page size of a multi-page TIFF written by this server.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": prop("string", "Absolute path to the TIFF stack"),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
