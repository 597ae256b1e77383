package nodefactory

import (
	"strings"

	"github.com/rs/dnscache"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/platform"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

const appName = "edge_ai_api"

// BuildContext carries per-build information a constructor needs beyond
// its own node's parameters.
type BuildContext struct {
	// InstanceID is the owning instance's id, used for RTMP stream-key
	// disambiguation (spec.md §4.F "Destination-node specifics").
	InstanceID string
	// ExistingRTMPKeys is shared by reference across every node built in
	// the same Pipeline Builder pass: a destination constructor both
	// reads it (to detect a collision) and writes its own resulting key
	// into it, so a second colliding placeholder in the same build is
	// disambiguated too (spec.md §4.G "Tie-breaks").
	ExistingRTMPKeys map[string]struct{}
	// FontPathOverride is the request-level override at the top of the
	// overlay font cascade (spec.md §4.G "Font paths for overlay nodes").
	FontPathOverride string
}

// Factory is the nodeType -> constructor dispatch table (design note 9).
type Factory struct {
	config   *sysconfig.Store
	probe    *platform.Probe
	resolver *dnscache.Resolver
}

// New returns a Factory wired to the given config store and platform
// probe (used for decoder selection, spec.md §4.F "Source-node specifics").
func New(config *sysconfig.Store, probe *platform.Probe) *Factory {
	return &Factory{config: config, probe: probe, resolver: &dnscache.Resolver{}}
}

type constructor func(f *Factory, nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error)

var constructors = map[string]constructor{
	"rtsp_src":  (*Factory).newRTSPSource,
	"file_src":  (*Factory).newFileSource,
	"rtmp_src":  (*Factory).newRTMPSource,
	"udp_src":   (*Factory).newUDPSource,
	"image_src": (*Factory).newImageSource,
	"app_src":   (*Factory).newAppSource,

	"yunet_face_detector": (*Factory).newDetector,
	"yolo_detector":       (*Factory).newDetector,

	"sface_feature_encoder": (*Factory).newProcessor,
	"sort_track":            (*Factory).newProcessor,
	"ba_crossline":          (*Factory).newProcessor,
	"face_osd_v2":           (*Factory).newOverlay,
	"osd_v3":                (*Factory).newOverlay,

	"file_des":   (*Factory).newFileDestination,
	"rtmp_des":   (*Factory).newRTMPDestination,
	"screen_des": (*Factory).newScreenDestination,

	"mqtt_broker": (*Factory).newMQTTBroker,
}

// Create dispatches to the constructor registered for nodeType. A nil,nil
// return means the node was deliberately elided (e.g. an RTMP destination
// with no URL) and must be dropped from the graph silently.
func (f *Factory) Create(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.Create"
	if strings.TrimSpace(name) == "" {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "node name must not be empty")
	}
	ctor, ok := constructors[nodeType]
	if !ok {
		return nil, coreerr.New(op, coreerr.InvalidArgument, "unknown node type: "+nodeType)
	}
	return ctor(f, nodeType, name, params, bctx)
}

func isPlaceholder(v string) bool {
	return strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") && len(v) > 3
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func cloneParams(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
