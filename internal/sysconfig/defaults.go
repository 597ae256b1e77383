package sysconfig

// defaults seeds the tree the way original_source's SystemConfig::initializeDefaults
// does: a web server section, a logging section, decoder/device priority
// lists, and a per-platform gstreamer section. Ported to Go as a plain
// JSON-shaped map so the generic path API works uniformly over it.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"system": map[string]interface{}{
			"max_running_instances": float64(0),
			"modelforge_permissive": false,
			"auto_device_list":      []interface{}{"auto"},
			"decoder_priority_list":  []interface{}{"nvidia", "vaapi", "msdk", "jetson", "software"},
			"web_server": map[string]interface{}{
				"enabled":      true,
				"ip_address":   "0.0.0.0",
				"port":         float64(3546),
				"name":         "default",
				"cors_enabled": false,
			},
		},
		"logging": map[string]interface{}{
			"log_file":          "logs/api.log",
			"log_level":         "debug",
			"max_log_file_size": float64(52428800),
			"max_log_files":     float64(3),
		},
		"gstreamer": map[string]interface{}{
			"decode_pipelines": map[string]interface{}{},
			"capabilities":     map[string]interface{}{},
			"plugin_ranks":     map[string]interface{}{},
		},
	}
}

// WebServerConfig mirrors original_source's SystemConfig::WebServerConfig.
type WebServerConfig struct {
	Enabled     bool   `json:"enabled"`
	IPAddress   string `json:"ipAddress"`
	Port        int    `json:"port"`
	Name        string `json:"name"`
	CORSEnabled bool   `json:"corsEnabled"`
}

// GetWebServerConfig returns the web_server section as a typed struct,
// falling back to the seeded defaults (enabled, 0.0.0.0, port 3546, name
// "default", CORS off) for any field missing from the tree.
func (s *Store) GetWebServerConfig() WebServerConfig {
	cfg := WebServerConfig{Enabled: true, IPAddress: "0.0.0.0", Port: 3546, Name: "default"}
	v, ok := s.Get("system.web_server")
	if !ok {
		return cfg
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return cfg
	}
	if b, ok := m["enabled"].(bool); ok {
		cfg.Enabled = b
	}
	if s, ok := m["ip_address"].(string); ok {
		cfg.IPAddress = s
	}
	if p, ok := m["port"].(float64); ok {
		cfg.Port = int(p)
	}
	if n, ok := m["name"].(string); ok {
		cfg.Name = n
	}
	if c, ok := m["cors_enabled"].(bool); ok {
		cfg.CORSEnabled = c
	}
	return cfg
}

// GetMaxRunningInstances returns system.max_running_instances (0 = unlimited).
func (s *Store) GetMaxRunningInstances() int {
	v, ok := s.Get("system.max_running_instances")
	if !ok {
		return 0
	}
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

// GetDecoderPriorityList returns system.decoder_priority_list in order.
func (s *Store) GetDecoderPriorityList() []string {
	v, ok := s.Get("system.decoder_priority_list")
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// GetGStreamerPipeline returns the decode pipeline string configured for a
// platform tag ("jetson", "nvidia", "msdk", "vaapi", "auto"), or "" if unset.
func (s *Store) GetGStreamerPipeline(platform string) string {
	v, ok := s.Get("gstreamer.decode_pipelines." + platform)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// SetGStreamerPipeline sets the decode pipeline string for a platform tag.
func (s *Store) SetGStreamerPipeline(platform, pipeline string) error {
	return s.SetMerge("gstreamer.decode_pipelines."+platform, pipeline)
}
