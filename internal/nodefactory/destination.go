package nodefactory

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
)

// StreamKey extracts the RTMP stream key from a URL (its last path
// segment, with a trailing "_0" suffix stripped) — spec.md §4.F
// "Stream-key extraction strips a trailing _0 suffix if present".
// Exported so the Instance Registry can compute the set of keys already
// claimed by loaded instances without duplicating this logic.
func StreamKey(rtmpURL string) string {
	key := rtmpURL
	if idx := strings.LastIndex(rtmpURL, "/"); idx >= 0 {
		key = rtmpURL[idx+1:]
	}
	return strings.TrimSuffix(key, "_0")
}

// uniqueRTMPURL appends a short instance-id prefix to the stream key on
// collision, otherwise returns the URL verbatim (spec.md §4.F, testable
// property 7).
func (f *Factory) uniqueRTMPURL(rtmpURL string, bctx BuildContext) string {
	key := StreamKey(rtmpURL)
	if _, collide := bctx.ExistingRTMPKeys[key]; !collide {
		return rtmpURL
	}
	suffix := bctx.InstanceID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return rtmpURL + "_" + suffix
}

func (f *Factory) newFileDestination(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newFileDestination"
	dir := params["save_dir"]
	if dir == "" || isPlaceholder(dir) {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "save_dir is required")
	}
	dir = rewriteDevPath(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, coreerr.Wrap(op, coreerr.DependencyUnavailable, "create output directory", err)
	}
	resolved := cloneParams(params)
	resolved["save_dir"] = dir
	resolved["osd"] = orDefault(params["osd"], "true")
	log.Info().Str("node", name).Str("save_dir", dir).Msg("file destination node created")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newRTMPDestination(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	url := params["rtmp_url"]
	if url == "" || isPlaceholder(url) {
		log.Debug().Str("node", name).Msg("empty rtmp_url, eliding rtmp destination node")
		return nil, nil
	}
	finalURL := f.uniqueRTMPURL(url, bctx)
	if finalURL != url {
		log.Warn().Str("requested", url).Str("assigned", finalURL).Msg("rtmp stream key collision, disambiguated")
	}
	if bctx.ExistingRTMPKeys != nil {
		bctx.ExistingRTMPKeys[StreamKey(finalURL)] = struct{}{}
	}
	resolved := cloneParams(params)
	resolved["rtmp_url"] = finalURL
	resolved["channel"] = orDefault(params["channel"], "0")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newScreenDestination(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		log.Debug().Str("node", name).Msg("no display reachable, eliding screen destination node")
		return nil, nil
	}
	return &handle{name: name, nodeType: nodeType, params: cloneParams(params)}, nil
}
