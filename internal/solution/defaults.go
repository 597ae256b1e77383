package solution

// DefaultSolutions mirrors original_source's SolutionManager default
// catalogue: one entry for each (solutionType, input kind) combination
// listed below. Quick-create (spec.md §6 "POST /v1/core/instance/quick")
// looks up "<solutionType>_<inputType>_default"; combinations not listed
// here have no default solution.
// Node parameter values carrying "${TOKEN}" are resolved by the Pipeline
// Builder against the request's AdditionalParams or the node template's
// own defaults (spec.md §4.G step 3.b).
func DefaultSolutions() []Config {
	return []Config{
		faceDetectionSolution("file"),
		faceDetectionSolution("rtsp"),
		faceDetectionSolution("rtmp"),
		objectDetectionSolution("file"),
		objectDetectionSolution("rtsp"),
		securtSolution("securt", "rtsp"),
		securtSolution("ba_crossline", "rtsp"),
		securtSolution("ba_jam", "rtsp"),
		securtSolution("ba_stop", "rtsp"),
		securtSolution("ba_area_enter_exit", "rtsp"),
	}
}

func faceDetectionSolution(inputType string) Config {
	return Config{
		SolutionID:   "face_detection_" + inputType + "_default",
		SolutionName: "Face Detection (" + inputType + ")",
		SolutionType: "face_detection",
		IsDefault:    true,
		Pipeline: []NodeSpec{
			sourceSpec(inputType),
			{
				NodeType: "yunet_face_detector",
				NodeName: "Face Detector_{instanceId}",
				Parameters: map[string]string{
					"model_path":      "${FACE_MODEL_PATH}",
					"score_threshold": "${DETECTION_THRESHOLD}",
				},
			},
			{
				NodeType:   "face_osd_v2",
				NodeName:   "Face OSD_{instanceId}",
				Parameters: map[string]string{},
			},
			destinationSpec("file"),
		},
	}
}

func objectDetectionSolution(inputType string) Config {
	return Config{
		SolutionID:   "object_detection_" + inputType + "_default",
		SolutionName: "Object Detection (" + inputType + ")",
		SolutionType: "object_detection",
		IsDefault:    true,
		Pipeline: []NodeSpec{
			sourceSpec(inputType),
			{
				NodeType: "yolo_detector",
				NodeName: "Object Detector_{instanceId}",
				Parameters: map[string]string{
					"weights_path": "${OBJECT_WEIGHTS_PATH}",
					"config_path":  "${OBJECT_CONFIG_PATH}",
				},
			},
			{
				NodeType:   "sort_track",
				NodeName:   "Tracker_{instanceId}",
				Parameters: map[string]string{},
			},
			{
				NodeType:   "osd_v3",
				NodeName:   "OSD_{instanceId}",
				Parameters: map[string]string{"font_path": "${OSD_FONT_PATH}"},
			},
			destinationSpec("rtmp"),
		},
	}
}

func securtSolution(solutionType, inputType string) Config {
	return Config{
		SolutionID:   solutionType + "_" + inputType + "_default",
		SolutionName: "SecuRT (" + solutionType + ")",
		SolutionType: solutionType,
		IsDefault:    true,
		Pipeline: []NodeSpec{
			sourceSpec(inputType),
			{
				NodeType: "yolo_detector",
				NodeName: "Detector_{instanceId}",
				Parameters: map[string]string{
					"weights_path": "${OBJECT_WEIGHTS_PATH}",
					"config_path":  "${OBJECT_CONFIG_PATH}",
				},
			},
			{
				NodeType:   "sort_track",
				NodeName:   "Tracker_{instanceId}",
				Parameters: map[string]string{},
			},
			{
				NodeType:   "ba_crossline",
				NodeName:   "Analytics_{instanceId}",
				Parameters: map[string]string{},
			},
			{
				NodeType:   "osd_v3",
				NodeName:   "OSD_{instanceId}",
				Parameters: map[string]string{"font_path": "${OSD_FONT_PATH}"},
			},
			{
				NodeType:   "mqtt_broker",
				NodeName:   "Events_{instanceId}",
				Parameters: map[string]string{"broker_url": "${MQTT_BROKER_URL}"},
			},
			destinationSpec("rtmp"),
		},
	}
}

func sourceSpec(inputType string) NodeSpec {
	switch inputType {
	case "rtsp":
		return NodeSpec{
			NodeType: "rtsp_src", NodeName: "RTSP Source_{instanceId}",
			Parameters: map[string]string{"rtsp_url": "${RTSP_URL}", "resize_ratio": "${RESIZE_RATIO}"},
		}
	case "rtmp":
		return NodeSpec{
			NodeType: "rtmp_src", NodeName: "RTMP Source_{instanceId}",
			Parameters: map[string]string{"rtmp_url": "${RTMP_URL}", "resize_ratio": "${RESIZE_RATIO}"},
		}
	default:
		return NodeSpec{
			NodeType: "file_src", NodeName: "File Source_{instanceId}",
			Parameters: map[string]string{"file_path": "${FILE_PATH}", "resize_ratio": "${RESIZE_RATIO}"},
		}
	}
}

func destinationSpec(outputType string) NodeSpec {
	switch outputType {
	case "rtmp":
		return NodeSpec{
			NodeType: "rtmp_des", NodeName: "RTMP Destination_{instanceId}",
			Parameters: map[string]string{"rtmp_url": "${RTMP_URL}"},
		}
	case "screen":
		return NodeSpec{NodeType: "screen_des", NodeName: "Screen Destination_{instanceId}", Parameters: map[string]string{}}
	default:
		return NodeSpec{
			NodeType: "file_des", NodeName: "File Destination_{instanceId}",
			Parameters: map[string]string{"save_dir": "${OUTPUT_DIR}"},
		}
	}
}
