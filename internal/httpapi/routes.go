package httpapi

func (s *Server) routes() {
	// Core: instance quick-create.
	s.mux.HandleFunc("POST /v1/core/instance/quick", s.handleQuickCreate)
	s.mux.HandleFunc("GET /v1/core/instance/{id}", s.handleGetInstance)
	s.mux.HandleFunc("PATCH /v1/core/instance/{id}", s.handlePatchInstance)
	s.mux.HandleFunc("DELETE /v1/core/instance/{id}", s.handleDeleteInstance)
	s.mux.HandleFunc("POST /v1/core/instance/{id}/start", s.handleStartInstance)
	s.mux.HandleFunc("POST /v1/core/instance/{id}/stop", s.handleStopInstance)
	s.mux.HandleFunc("GET /v1/core/instance/{id}/stats", s.handleInstanceStats)
	s.mux.HandleFunc("GET /v1/core/instances", s.handleListInstances)

	// Core: configuration CRUD.
	s.mux.HandleFunc("GET /v1/core/config", s.handleConfigGet)
	s.mux.HandleFunc("GET /v1/core/config/{path...}", s.handleConfigGet)
	s.mux.HandleFunc("POST /v1/core/config/reset", s.handleConfigReset)
	s.mux.HandleFunc("POST /v1/core/config", s.handleConfigMerge)
	s.mux.HandleFunc("POST /v1/core/config/{path...}", s.handleConfigMerge)
	s.mux.HandleFunc("PUT /v1/core/config", s.handleConfigReplace)
	s.mux.HandleFunc("PUT /v1/core/config/{path...}", s.handleConfigReplace)
	s.mux.HandleFunc("PATCH /v1/core/config/{path...}", s.handleConfigMerge)
	s.mux.HandleFunc("DELETE /v1/core/config/{path...}", s.handleConfigDelete)

	// Core: node pool surface.
	s.mux.HandleFunc("GET /v1/core/nodes/templates", s.handleListTemplates)
	s.mux.HandleFunc("GET /v1/core/nodes/templates/{id}", s.handleGetTemplate)
	s.mux.HandleFunc("GET /v1/core/nodes/stats", s.handleNodeStats)
	s.mux.HandleFunc("GET /v1/core/nodes", s.handleListNodes)
	s.mux.HandleFunc("POST /v1/core/nodes", s.handleCreateNode)
	s.mux.HandleFunc("GET /v1/core/nodes/{id}", s.handleGetNode)
	s.mux.HandleFunc("PUT /v1/core/nodes/{id}", s.handlePutNode)
	s.mux.HandleFunc("DELETE /v1/core/nodes/{id}", s.handleDeleteNode)

	// SecuRT: instance lifecycle.
	s.mux.HandleFunc("POST /v1/securt/instance", s.handleSecuRTCreate)
	s.mux.HandleFunc("PUT /v1/securt/instance/{id}", s.handleSecuRTReplace)
	s.mux.HandleFunc("PATCH /v1/securt/instance/{id}", s.handleSecuRTPatch)
	s.mux.HandleFunc("DELETE /v1/securt/instance/{id}", s.handleSecuRTDelete)
	s.mux.HandleFunc("GET /v1/securt/instance/{id}/stats", s.handleSecuRTStats)
	s.mux.HandleFunc("GET /v1/securt/instance/{id}/analytics_entities", s.handleSecuRTAnalyticsEntities)

	// SecuRT: feature sub-endpoints — each stores its body's string fields
	// on the core instance through the core Instance Manager's Update.
	for _, feature := range []string{
		"input", "output", "feature_extraction",
		"attributes_extraction", "performance_profile", "face_detection",
		"lpr", "pip",
	} {
		s.mux.HandleFunc("POST /v1/securt/instance/{id}/"+feature, s.handleSecuRTFeature(feature))
	}

	// SecuRT: lines.
	s.mux.HandleFunc("GET /v1/securt/instance/{id}/lines", s.handleSecuRTLines)
	s.mux.HandleFunc("POST /v1/securt/instance/{id}/line/{kind}", s.handleSecuRTCreateLine)
	s.mux.HandleFunc("DELETE /v1/securt/instance/{id}/line/{kind}/{lineId}", s.handleSecuRTDeleteLine)

	// SecuRT: areas — exclusion/masking/motion areas go through the same
	// AnalyticsEntities store as lines (module K), not the generic
	// feature-patch path (include/api/securt_handler.h's addExclusionArea/
	// getExclusionAreas/deleteExclusionAreas/setMaskingAreas).
	for _, feature := range []string{"exclusion_areas", "masking_areas", "motion_area"} {
		s.mux.HandleFunc("POST /v1/securt/instance/{id}/"+feature, s.handleSecuRTCreateArea(feature))
		s.mux.HandleFunc("GET /v1/securt/instance/{id}/"+feature, s.handleSecuRTListAreas(feature))
		s.mux.HandleFunc("DELETE /v1/securt/instance/{id}/"+feature+"/{areaId}", s.handleSecuRTDeleteArea)
	}
}
