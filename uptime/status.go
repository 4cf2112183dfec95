package uptime

import "fmt"

const (
	StatusTimeout    = 408
	StatusTransport  = 0
	LabelTimeout     = "request timed out"
	labelErrorPrefix = "error: "
)

var statusLabels = map[int]string{
	200: "OK",
	201: "Created",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	408: LabelTimeout,
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// StatusLabel maps a status code to its display label.
func StatusLabel(code int) string {
	if l, ok := statusLabels[code]; ok {
		return l
	}
	return fmt.Sprintf("unknown status (%d)", code)
}
