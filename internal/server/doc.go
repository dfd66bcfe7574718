// Package server implements the MCP (Model Context Protocol) server for the
// particle tracking pipeline.
//
// This package provides a JSON-RPC 2.0 server that exposes frame extraction,
// detection, tracking and export through the MCP protocol, so that an
// assistant can tune detection parameters interactively and drive a full run.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Frames:
//   - frames_extract: Decode a video into numbered frames
//   - frames_info: Summarize a frame directory
//
// Detection:
//   - particle_locate: Detect particles on one frame
//   - particle_batch: Detect particles on every frame and store a run
//
// Tracking and export:
//   - particle_track: Link and filter a stored run
//   - trajectories_export: Render trajectories into a TIFF stack
//   - stack_info: Inspect a written stack
//
// Every tool argument is optional unless its schema marks it required;
// omitted values come from the configuration the server was started with.
// Overrides apply to the single call only.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Requests are handled one at a time. Logs go to the zap logger, never to
// stdout.
package server
