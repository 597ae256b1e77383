package nodefactory

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
)

// devToProdPathRewrites rewrites a handful of well-known development-tree
// paths to their production install-root equivalents (spec.md §4.G
// "Paths carrying a development prefix are rewritten to the production
// prefix via a small ordered table of string rewrites").
var devToProdPathRewrites = []struct{ from, to string }{
	{"./cvedix_data/test_video/", "/opt/" + appName + "/videos/"},
	{"cvedix_data/test_video/", "/opt/" + appName + "/videos/"},
}

func rewriteDevPath(p string) string {
	for _, r := range devToProdPathRewrites {
		if strings.HasPrefix(p, r.from) {
			return r.to + strings.TrimPrefix(p, r.from)
		}
	}
	return p
}

// clampResizeRatio enforces spec.md §4.F: values outside (0,1] are a hard
// InvalidArgument, but unresolved "${TOKEN}" placeholder residue on this
// optional parameter is clamped to 1.0 with a warning instead (the norm
// adopted for open question 1, see SPEC_FULL.md §4).
func clampResizeRatio(raw string) (float64, error) {
	const op = "nodefactory.resize_ratio"
	if raw == "" {
		return 1.0, nil
	}
	if isPlaceholder(raw) {
		log.Warn().Str("resize_ratio", raw).Msg("unresolved resize_ratio placeholder, defaulting to 1.0")
		return 1.0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, coreerr.New(op, coreerr.InvalidArgument, "resize_ratio must be numeric: "+raw)
	}
	if v <= 0 || v > 1 {
		return 0, coreerr.New(op, coreerr.InvalidArgument, fmt.Sprintf("resize_ratio out of range (0,1]: %v", v))
	}
	return v, nil
}

// chooseDecoder maps the config store's decoder_priority_list onto the
// platform probe's capabilities, first match wins, falling back to
// software H.264 (spec.md §4.F "Source-node specifics").
func (f *Factory) chooseDecoder() string {
	caps := f.probe.Capabilities()
	for _, tag := range f.config.GetDecoderPriorityList() {
		switch strings.ToLower(tag) {
		case "jetson":
			if caps.Jetson {
				return "nvv4l2decoder"
			}
		case "nvidia":
			if caps.NVIDIA {
				return "nvdec_h264"
			}
		case "vaapi":
			if caps.VAAPI {
				return "vaapih264dec"
			}
		case "msdk":
			if caps.MSDK {
				return "msdkh264dec"
			}
		case "software":
			return "avdec_h264"
		}
	}
	return "avdec_h264"
}

// rtspTransport resolves tcp/udp per spec.md §4.F: request parameter wins
// over the GST_RTSP_PROTOCOLS environment variable; unset means engine
// default (empty string).
func rtspTransport(params map[string]string) string {
	if t := params["RTSP_TRANSPORT"]; t != "" {
		return strings.ToLower(t)
	}
	if t := os.Getenv("GST_RTSP_PROTOCOLS"); t != "" {
		return strings.ToLower(t)
	}
	return ""
}

func (f *Factory) newRTSPSource(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newRTSPSource"
	url := params["rtsp_url"]
	if url == "" || isPlaceholder(url) {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "rtsp_url is required")
	}
	ratio, err := clampResizeRatio(params["resize_ratio"])
	if err != nil {
		return nil, err
	}
	decoder := f.chooseDecoder()
	if transport := rtspTransport(params); transport != "" {
		os.Setenv("GST_RTSP_PROTOCOLS", transport)
	}
	resolved := map[string]string{
		"rtsp_url":     url,
		"channel":      orDefault(params["channel"], "0"),
		"resize_ratio": fmt.Sprintf("%.3f", ratio),
		"decoder":      decoder,
	}
	log.Info().Str("node", name).Str("rtsp_url", url).Str("decoder", decoder).Msg("rtsp source node created")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newFileSource(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newFileSource"
	path := params["file_path"]
	if path == "" || isPlaceholder(path) {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "file_path is required")
	}
	path = rewriteDevPath(path)
	ratio, err := clampResizeRatio(params["resize_ratio"])
	if err != nil {
		return nil, err
	}
	resolved := map[string]string{
		"file_path":    path,
		"channel":      orDefault(params["channel"], "0"),
		"resize_ratio": fmt.Sprintf("%.3f", ratio),
	}
	log.Info().Str("node", name).Str("file_path", path).Msg("file source node created")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newRTMPSource(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newRTMPSource"
	url := params["rtmp_url"]
	if url == "" || isPlaceholder(url) {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "rtmp_url is required")
	}
	ratio, err := clampResizeRatio(params["resize_ratio"])
	if err != nil {
		return nil, err
	}
	resolved := map[string]string{
		"rtmp_url":      url,
		"channel":       orDefault(params["channel"], "0"),
		"resize_ratio":  fmt.Sprintf("%.3f", ratio),
		"skip_interval": orDefault(params["skip_interval"], "0"),
	}
	log.Info().Str("node", name).Str("rtmp_url", url).Msg("rtmp source node created")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newUDPSource(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newUDPSource"
	port := params["port"]
	if port == "" || isPlaceholder(port) {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "port is required")
	}
	ratio, err := clampResizeRatio(params["resize_ratio"])
	if err != nil {
		return nil, err
	}
	resolved := map[string]string{
		"port":          port,
		"resize_ratio":  fmt.Sprintf("%.3f", ratio),
		"skip_interval": orDefault(params["skip_interval"], "0"),
	}
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newImageSource(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newImageSource"
	loc := params["port_or_location"]
	if loc == "" || isPlaceholder(loc) {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "port_or_location is required")
	}
	resolved := cloneParams(params)
	resolved["interval"] = orDefault(params["interval"], "1")
	resolved["cycle"] = orDefault(params["cycle"], "true")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

func (f *Factory) newAppSource(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	resolved := cloneParams(params)
	resolved["channel"] = orDefault(params["channel"], "0")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}
