package client

const (
	apiPrefix = "/api"

	endpointHealth   = apiPrefix + "/health"
	endpointPersonas = apiPrefix + "/personas"

	// Session endpoints
	endpointSessions        = apiPrefix + "/session"
	endpointSession         = apiPrefix + "/session/%s"          // GET, DELETE
	endpointSessionSettings = apiPrefix + "/session/%s/settings" // PATCH
	endpointSessionMessages = apiPrefix + "/session/%s/messages" // GET, POST
	endpointStream          = apiPrefix + "/stream/%s"           // GET ?message=

	// Image endpoints
	endpointImages  = apiPrefix + "/images"
	endpointAnalyze = apiPrefix + "/images/analyze"

	// Tool endpoints
	endpointOCR  = apiPrefix + "/tools/ocr"
	endpointScan = apiPrefix + "/tools/scan"
	endpointGeo  = apiPrefix + "/tools/geo"
	endpointQR   = apiPrefix + "/tools/qr"
	endpointExif = apiPrefix + "/tools/exif"

	// Speech endpoints
	endpointSynthesize        = apiPrefix + "/speech/synthesize"
	endpointSynthesizeSession = apiPrefix + "/speech/synthesize/%s"
)
