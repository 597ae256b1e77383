// Package platform implements the Platform Probe: a once-per-process
// detector of Jetson/NVIDIA/Intel-MSDK/VAAPI acceleration, ported from
// original_source/src/core/platform_detector.cpp. Every individual probe
// swallows its own failure — the core must never fail to start because a
// probe command is missing (spec.md §4.A).
package platform

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/host"
	"golang.org/x/sync/singleflight"
)

// Label is the highest-priority accelerator tag, per the priority order
// jetson > nvidia > msdk > vaapi > auto.
type Label string

const (
	Jetson Label = "jetson"
	NVIDIA Label = "nvidia"
	MSDK   Label = "msdk"
	VAAPI  Label = "vaapi"
	Auto   Label = "auto"
)

// Capabilities holds every individually-probed signal, not just the
// winning label — the Node Factory's decoder_priority_list lookup (§4.F)
// needs to know about more than the top choice.
type Capabilities struct {
	Jetson bool
	NVIDIA bool
	MSDK   bool
	VAAPI  bool
}

// Probe caches the detection result for the lifetime of the process.
type Probe struct {
	once  sync.Once
	group singleflight.Group
	caps  Capabilities
	label Label
}

// New returns a Probe. Detection is lazy — the first call to DetectPlatform or
// Capabilities runs the actual probes.
func New() *Probe {
	return &Probe{}
}

func (p *Probe) ensure() {
	p.once.Do(func() {
		_, _, _ = p.group.Do("probe", func() (interface{}, error) {
			p.caps = Capabilities{
				Jetson: isJetson(),
				NVIDIA: isNVIDIA(),
				MSDK:   isMSDK(),
				VAAPI:  isVAAPI(),
			}
			p.label = pickLabel(p.caps)
			log.Debug().
				Bool("jetson", p.caps.Jetson).
				Bool("nvidia", p.caps.NVIDIA).
				Bool("msdk", p.caps.MSDK).
				Bool("vaapi", p.caps.VAAPI).
				Str("label", string(p.label)).
				Msg("platform probe complete")
			return nil, nil
		})
	})
}

// DetectPlatform returns the highest-priority label.
func (p *Probe) DetectPlatform() Label {
	p.ensure()
	return p.label
}

// Capabilities returns every individually-probed signal.
func (p *Probe) Capabilities() Capabilities {
	p.ensure()
	return p.caps
}

func pickLabel(c Capabilities) Label {
	switch {
	case c.Jetson:
		return Jetson
	case c.NVIDIA:
		return NVIDIA
	case c.MSDK:
		return MSDK
	case c.VAAPI:
		return VAAPI
	default:
		return Auto
	}
}

func isJetson() bool {
	for _, path := range []string{"/proc/device-tree/model", "/sys/firmware/devicetree/base/model"} {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		model := strings.ToLower(string(raw))
		if strings.Contains(model, "jetson") || strings.Contains(model, "tegra") {
			return true
		}
	}
	return false
}

func isNVIDIA() bool {
	if commandHasOutput("nvidia-smi", "--query-gpu=name", "--format=csv,noheader") {
		return true
	}
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return true
	}
	return false
}

func isMSDK() bool {
	if ldconfigContains("libmfx") {
		return true
	}
	if _, err := exec.LookPath("intel_gpu_top"); err == nil {
		return true
	}
	return false
}

func isVAAPI() bool {
	if ldconfigContains("libva") {
		return true
	}
	matches, err := filepath.Glob("/dev/dri/renderD*")
	return err == nil && len(matches) > 0
}

func commandHasOutput(name string, args ...string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return err == nil && len(strings.TrimSpace(string(out))) > 0
}

func ldconfigContains(needle string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "ldconfig", "-p").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), strings.ToLower(needle))
}

// HostRole folds in a gopsutil host-info fallback signal: when no
// accelerator was detected at all, a virtualized host is still worth
// logging since it explains why every accelerator probe came back empty.
func (p *Probe) HostRole() string {
	info, err := host.Info()
	if err != nil {
		return "unknown"
	}
	if info.VirtualizationSystem != "" {
		return info.VirtualizationSystem
	}
	return "bare-metal"
}
