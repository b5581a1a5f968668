package bootstrap

import (
	"time"

	"github.com/kbukum/reqkit/logger"
)

// logSummary logs one line per described component after startup.
func (a *App[C]) logSummary(took time.Duration) {
	for _, d := range a.Components.Descriptions() {
		a.Logger.Info("  "+d.Name, logger.Fields("type", d.Type, "details", d.Details))
	}
	a.Logger.Info("Application ready", logger.Fields(
		"name", a.Name,
		"components", len(a.Components.Descriptions()),
		logger.FieldDuration, took.String(),
	))
}
