package nodefactory

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/cvedix/edge-ai-core/internal/coreerr"
	"github.com/cvedix/edge-ai-core/internal/modelresolver"
)

// newDetector handles every detector-category node type. Each branches on
// nodeType for its own required-model parameters (spec.md §4.F groups
// constructors "by category" but each still has a per-type contract).
func (f *Factory) newDetector(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newDetector"
	resolved := cloneParams(params)

	switch nodeType {
	case "yunet_face_detector":
		modelPath := params["model_path"]
		if modelPath == "" || isPlaceholder(modelPath) {
			return nil, coreerr.New(op, coreerr.InvalidArgument, "model_path is required")
		}
		resolved["model_path"] = modelresolver.ResolveModelPath(modelPath)
		if threshold := params["score_threshold"]; threshold == "" || isPlaceholder(threshold) {
			resolved["score_threshold"] = "0.7"
		}
	case "yolo_detector":
		for _, required := range []string{"weights_path", "config_path"} {
			v := params[required]
			if v == "" || isPlaceholder(v) {
				return nil, coreerr.New(op, coreerr.InvalidArgument, required+" is required")
			}
			resolved[required] = modelresolver.ResolveModelPath(v)
		}
	}

	log.Info().Str("node", name).Str("node_type", nodeType).Msg("detector node created")
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

// newProcessor handles feature-encoder, tracker and analytics-processor
// node types. None of these require filesystem resources except the
// feature encoder's model path.
func (f *Factory) newProcessor(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	const op = "nodefactory.newProcessor"
	resolved := cloneParams(params)

	if nodeType == "sface_feature_encoder" {
		modelPath := params["model_path"]
		if modelPath == "" || isPlaceholder(modelPath) {
			return nil, coreerr.New(op, coreerr.InvalidArgument, "model_path is required")
		}
		resolved["model_path"] = modelresolver.ResolveModelPath(modelPath)
	}

	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}

const prodFontPath = "/opt/" + appName + "/fonts/default.ttf"

// resolveFontPath implements the cascade from spec.md §4.G: request
// override > parameter > production default > environment default >
// empty (engine default).
func resolveFontPath(bctx BuildContext, params map[string]string) string {
	if bctx.FontPathOverride != "" {
		return bctx.FontPathOverride
	}
	if p := params["font_path"]; p != "" && !isPlaceholder(p) {
		return p
	}
	if _, err := os.Stat(prodFontPath); err == nil {
		return prodFontPath
	}
	if env := os.Getenv("CVEDIX_FONT_PATH"); env != "" {
		return env
	}
	return ""
}

// loadFontWithFallback simulates the "retries once with the empty
// fallback" rule: a font that can't be found on disk falls back to ""
// (engine default) rather than failing the node.
func loadFontWithFallback(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("font_path", path).Err(err).Msg("overlay font not found, retrying with engine default")
		return ""
	}
	return path
}

func (f *Factory) newOverlay(nodeType, name string, params map[string]string, bctx BuildContext) (NodeHandle, error) {
	resolved := cloneParams(params)
	resolved["font_path"] = loadFontWithFallback(resolveFontPath(bctx, params))
	return &handle{name: name, nodeType: nodeType, params: resolved}, nil
}
