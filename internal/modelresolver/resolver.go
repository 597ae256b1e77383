// Package modelresolver maps a relative model reference to an absolute
// file path using the ordered search chain from
// original_source/src/core/pipeline_builder_model_resolver.cpp, and maps a
// detection-sensitivity label to a numeric threshold (spec.md §4.B).
package modelresolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const appName = "edge_ai_api"

var knownExtensions = []string{".onnx", ".rknn", ".weights", ".pt", ".pth", ".pb", ".tflite"}

// ResolveModelPath resolves relativePath (e.g. "models/face/yunet.onnx")
// against the search chain documented in spec.md §4.B, first existing file
// wins. If nothing in the chain matches it returns relativePath joined
// under "./cvedix_data", without checking that this file exists.
func ResolveModelPath(relativePath string) string {
	if root := os.Getenv("CVEDIX_DATA_ROOT"); root != "" {
		if p := filepath.Join(root, relativePath); exists(p) {
			log.Info().Str("path", p).Msg("model resolved via CVEDIX_DATA_ROOT")
			return p
		}
	}

	if root := os.Getenv("CVEDIX_SDK_ROOT"); root != "" {
		if p := filepath.Join(root, "cvedix_data", relativePath); exists(p) {
			log.Info().Str("path", p).Msg("model resolved via CVEDIX_SDK_ROOT")
			return p
		}
	}

	prodRoot := "/opt/" + appName + "/models"
	if strings.HasPrefix(relativePath, "models/") || strings.HasPrefix(relativePath, `models\`) {
		rest := relativePath[strings.IndexAny(relativePath, `/\`)+1:]
		if p := filepath.Join(prodRoot, rest); exists(p) {
			log.Info().Str("path", p).Msg("model resolved via production install root")
			return p
		}
	}
	if p := filepath.Join(prodRoot, relativePath); exists(p) {
		log.Info().Str("path", p).Msg("model resolved via production install root")
		return p
	}

	systemPaths := []string{
		filepath.Join("/usr/share/cvedix/cvedix_data", relativePath),
		filepath.Join("/usr/local/share/cvedix/cvedix_data", relativePath),
		filepath.Join("/usr/include/cvedix/cvedix_data", relativePath),
		filepath.Join("/usr/local/include/cvedix/cvedix_data", relativePath),
	}
	for _, p := range systemPaths {
		if exists(p) {
			log.Info().Str("path", p).Msg("model resolved via system data dir")
			return p
		}
		if strings.Contains(relativePath, "yunet.onnx") {
			if alt := findYunetAlternative(filepath.Dir(p)); alt != "" {
				log.Info().Str("path", alt).Msg("model resolved via yunet alternative")
				return alt
			}
		}
	}

	sdkRelatives := []string{
		filepath.Join("../edge_ai_sdk/cvedix_data", relativePath),
		filepath.Join("../../edge_ai_sdk/cvedix_data", relativePath),
		filepath.Join("../../../edge_ai_sdk/cvedix_data", relativePath),
	}
	for _, p := range sdkRelatives {
		if exists(p) {
			abs, _ := filepath.Abs(p)
			log.Info().Str("path", abs).Msg("model resolved via SDK source tree")
			return p
		}
	}

	devFallback := filepath.Join("./cvedix_data", relativePath)
	if exists(devFallback) {
		abs, _ := filepath.Abs(devFallback)
		log.Info().Str("path", abs).Msg("model resolved via development fallback")
		return devFallback
	}

	log.Warn().Str("path", devFallback).Msg("model not found in any search location, returning default relative path")
	return devFallback
}

var yunetAlternatives = []string{
	"face_detection_yunet_2023mar.onnx",
	"face_detection_yunet_2022mar.onnx",
	"yunet_2023mar.onnx",
	"yunet_2022mar.onnx",
}

func findYunetAlternative(dir string) string {
	if !isDir(dir) {
		return ""
	}
	for _, alt := range yunetAlternatives {
		p := filepath.Join(dir, alt)
		if exists(p) {
			return p
		}
	}
	return ""
}

// ResolveModelByName resolves a bare model name (e.g. "yunet_2023mar")
// within a category directory ("face", "object", ...), trying known
// extensions and a small set of name patterns before falling back to a
// case-insensitive contains-match. Returns "" on miss.
func ResolveModelByName(modelName, category string) string {
	if category == "" {
		category = "face"
	}

	patterns := []string{modelName}
	lower := strings.ToLower(modelName)
	if strings.Contains(lower, "yunet") || strings.Contains(lower, "face") {
		patterns = append(patterns, "face_detection_"+modelName, modelName+"_face_detection")
		if !strings.Contains(lower, "yunet") {
			patterns = append(patterns, "face_detection_yunet_"+modelName)
		}
	}

	for _, dir := range searchDirsForCategory(category) {
		if !isDir(dir) {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, pattern := range patterns {
			for _, ext := range knownExtensions {
				candidate := pattern + ext
				if p := filepath.Join(dir, candidate); exists(p) {
					abs, _ := filepath.Abs(p)
					log.Info().Str("model", modelName).Str("path", abs).Msg("model resolved by name")
					return abs
				}
				if p := containsMatch(entries, dir, candidate); p != "" {
					log.Info().Str("model", modelName).Str("path", p).Msg("model resolved by name (contains-match)")
					return p
				}
			}
		}
	}
	return ""
}

func containsMatch(entries []os.DirEntry, dir, candidate string) string {
	candidateLower := strings.ToLower(candidate)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		nameLower := strings.ToLower(e.Name())
		if nameLower == candidateLower || strings.Contains(nameLower, candidateLower) {
			abs, _ := filepath.Abs(filepath.Join(dir, e.Name()))
			return abs
		}
	}
	return ""
}

func searchDirsForCategory(category string) []string {
	var dirs []string
	if root := os.Getenv("CVEDIX_DATA_ROOT"); root != "" {
		dirs = append(dirs, filepath.Join(root, "models", category))
	}
	if root := os.Getenv("CVEDIX_SDK_ROOT"); root != "" {
		dirs = append(dirs, filepath.Join(root, "cvedix_data", "models", category))
	}
	dirs = append(dirs,
		"/opt/"+appName+"/models/"+category,
		"/opt/"+appName+"/models",
		"/usr/share/cvedix/cvedix_data/models/"+category,
		"/usr/local/share/cvedix/cvedix_data/models/"+category,
		"/usr/include/cvedix/cvedix_data/models/"+category,
		"/usr/local/include/cvedix/cvedix_data/models/"+category,
		"../edge_ai_sdk/cvedix_data/models/"+category,
		"../../edge_ai_sdk/cvedix_data/models/"+category,
		"../../../edge_ai_sdk/cvedix_data/models/"+category,
		"./cvedix_data/models/"+category,
		"./models",
	)
	return dirs
}

// ListAvailableModels lists the model files directly inside the known search
// directories for category. With category == "" only files directly inside
// each models root are listed; category subdirectories are not searched.
func ListAvailableModels(category string) []string {
	dirs := searchDirsForCategory(category)
	seen := map[string]struct{}{}
	var out []string
	for _, dir := range dirs {
		if !isDir(dir) {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if !hasKnownExtension(e.Name()) {
				continue
			}
			abs, err := filepath.Abs(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			out = append(out, abs)
		}
	}
	sort.Strings(out)
	return out
}

func hasKnownExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// MapDetectionSensitivity maps "Low"/"Medium"/"High" to the numeric
// threshold used by detector nodes; unknown values default to Medium.
func MapDetectionSensitivity(sensitivity string) float64 {
	switch sensitivity {
	case "Low":
		return 0.5
	case "High":
		return 0.9
	default:
		return 0.7
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
