package nodepool

// defaultTemplates mirrors the manually-curated override set from
// original_source's NodePoolManager::initializeDefaultTemplates. The SDK
// import step it layers on top of is out of scope here (no SDK node-type
// registry ships with this core); these hand-authored templates are the
// full seed set.
func defaultTemplates() []Template {
	return []Template{
		{
			TemplateID: "rtsp_src_template", NodeType: "rtsp_src", DisplayName: "RTSP Source",
			Description: "Receive video stream from RTSP URL", Category: CategorySource,
			DefaultParameters:  map[string]string{"channel": "0", "resize_ratio": "1.0"},
			RequiredParameters: []string{"rtsp_url"},
			OptionalParameters: []string{"channel", "resize_ratio"},
		},
		{
			TemplateID: "file_src_template", NodeType: "file_src", DisplayName: "File Source",
			Description: "Read video from file", Category: CategorySource,
			DefaultParameters:  map[string]string{"channel": "0", "resize_ratio": "1.0"},
			RequiredParameters: []string{"file_path"},
			OptionalParameters: []string{"channel", "resize_ratio"},
		},
		{
			TemplateID: "rtmp_src_template", NodeType: "rtmp_src", DisplayName: "RTMP Source",
			Description: "Receive video stream from RTMP URL", Category: CategorySource,
			DefaultParameters:  map[string]string{"channel": "0", "resize_ratio": "1.0", "skip_interval": "0"},
			RequiredParameters: []string{"rtmp_url"},
			OptionalParameters: []string{"channel", "resize_ratio", "skip_interval", "gst_decoder_name"},
		},
		{
			TemplateID: "udp_src_template", NodeType: "udp_src", DisplayName: "UDP Source",
			Description: "Receive video stream via UDP", Category: CategorySource,
			DefaultParameters:  map[string]string{"resize_ratio": "1.0", "skip_interval": "0"},
			RequiredParameters: []string{"port"},
			OptionalParameters: []string{"resize_ratio", "skip_interval"},
		},
		{
			TemplateID: "image_src_template", NodeType: "image_src", DisplayName: "Image Source",
			Description: "Read images from file or UDP port", Category: CategorySource,
			DefaultParameters:  map[string]string{"interval": "1", "resize_ratio": "1.0", "cycle": "true"},
			RequiredParameters: []string{"port_or_location"},
			OptionalParameters: []string{"interval", "resize_ratio", "cycle"},
		},
		{
			TemplateID: "app_src_template", NodeType: "app_src", DisplayName: "App Source",
			Description: "Receive video frames from application", Category: CategorySource,
			DefaultParameters:  map[string]string{"channel": "0"},
			OptionalParameters: []string{"channel"},
			IsPreConfigured:    true,
		},
		{
			TemplateID: "yunet_face_detector_template", NodeType: "yunet_face_detector", DisplayName: "YuNet Face Detector",
			Description: "Detect faces using YuNet model", Category: CategoryDetector,
			DefaultParameters:  map[string]string{"score_threshold": "0.7", "nms_threshold": "0.5", "top_k": "50"},
			RequiredParameters: []string{"model_path"},
			OptionalParameters: []string{"score_threshold", "nms_threshold", "top_k"},
		},
		{
			TemplateID: "yolo_detector_template", NodeType: "yolo_detector", DisplayName: "YOLO Detector",
			Description: "Object detection using YOLO", Category: CategoryDetector,
			RequiredParameters: []string{"weights_path", "config_path"},
			OptionalParameters: []string{"labels_path"},
		},
		{
			TemplateID: "sface_feature_encoder_template", NodeType: "sface_feature_encoder", DisplayName: "SFace Feature Encoder",
			Description: "Extract face features using SFace", Category: CategoryProcessor,
			RequiredParameters: []string{"model_path"},
		},
		{
			TemplateID: "sort_track_template", NodeType: "sort_track", DisplayName: "SORT Tracker",
			Description: "Track objects using SORT algorithm", Category: CategoryProcessor,
			IsPreConfigured: true,
		},
		{
			TemplateID: "face_osd_v2_template", NodeType: "face_osd_v2", DisplayName: "Face OSD v2",
			Description: "Overlay face detection results", Category: CategoryProcessor,
			IsPreConfigured: true,
		},
		{
			TemplateID: "osd_v3_template", NodeType: "osd_v3", DisplayName: "OSD v3",
			Description: "Overlay masks and labels (for Mask R-CNN, segmentation, etc.)", Category: CategoryProcessor,
			DefaultParameters:  map[string]string{"font_path": ""},
			OptionalParameters: []string{"font_path"},
			IsPreConfigured:    true,
		},
		{
			TemplateID: "ba_crossline_template", NodeType: "ba_crossline", DisplayName: "BA Crossline",
			Description: "Behavior analysis - crossline detection", Category: CategoryProcessor,
			DefaultParameters: map[string]string{
				"line_channel": "0", "line_start_x": "0", "line_start_y": "250",
				"line_end_x": "700", "line_end_y": "220",
			},
			OptionalParameters: []string{"line_channel", "line_start_x", "line_start_y", "line_end_x", "line_end_y"},
			IsPreConfigured:    true,
		},
		{
			TemplateID: "file_des_template", NodeType: "file_des", DisplayName: "File Destination",
			Description: "Save video to file", Category: CategoryDestination,
			DefaultParameters:  map[string]string{"osd": "true"},
			RequiredParameters: []string{"save_dir"},
			OptionalParameters: []string{"name_prefix", "osd"},
		},
		{
			TemplateID: "rtmp_des_template", NodeType: "rtmp_des", DisplayName: "RTMP Destination",
			Description: "Stream video via RTMP", Category: CategoryDestination,
			DefaultParameters:  map[string]string{"channel": "0"},
			RequiredParameters: []string{"rtmp_url"},
			OptionalParameters: []string{"channel"},
		},
		{
			TemplateID: "screen_des_template", NodeType: "screen_des", DisplayName: "Screen Destination",
			Description: "Display video on screen", Category: CategoryDestination,
			IsPreConfigured: true,
		},
		{
			TemplateID: "mqtt_broker_template", NodeType: "mqtt_broker", DisplayName: "MQTT Broker",
			Description: "Publish analytics events to an MQTT broker", Category: CategoryBroker,
			DefaultParameters:  map[string]string{"qos": "0", "topic_prefix": "cvedix"},
			RequiredParameters: []string{"broker_url"},
			OptionalParameters: []string{"qos", "topic_prefix", "client_id"},
		},
	}
}
