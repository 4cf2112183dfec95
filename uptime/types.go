// Package uptime defines core types for the probe executor.
package uptime

import "uptime-inspector/model"

type LogLevel int

const (
	LogNone  LogLevel = iota // no logs
	LogError                 // only failed probes
	LogInfo                  // info + failures
	LogDebug                 // verbose
)

// job is one menu probe handed to a worker. index is the menu's slot in the
// result slice so output keeps declaration order.
type job struct {
	index int
	menu  model.Menu
	url   string
}
