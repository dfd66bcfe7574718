package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"frames_extract",
		"frames_info",
		"particle_locate",
		"particle_batch",
		"particle_track",
		"trajectories_export",
		"stack_info",
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema properties missing")
			}
			for name, p := range props {
				schema, ok := p.(map[string]interface{})
				if !ok {
					t.Errorf("property %s is not an object", name)
					continue
				}
				if schema["type"] == nil || schema["description"] == nil {
					t.Errorf("property %s needs a type and description", name)
				}
			}
			if req, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range req {
					if _, ok := props[r]; !ok {
						t.Errorf("required %q is not a property", r)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_DetectionOverrides(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "particle_locate" && tool.Name != "particle_batch" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		for _, key := range []string{"diameter", "min_mass", "invert", "pattern", "dir"} {
			if _, ok := props[key]; !ok {
				t.Errorf("%s: missing %s", tool.Name, key)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newBareServer()
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
