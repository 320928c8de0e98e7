package indexer

import "time"

// ProgressReporter provides callbacks for reporting analysis progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files int)

	// Graph building progress
	OnGraphBuildingStart(totalFiles int)
	OnGraphFileProcessed(processedFiles, totalFiles int, fileName string)
	OnGraphBuildingComplete(callerCount, edgeCount int, duration time.Duration)

	// OnExported is called after each artifact is written.
	OnExported(name, path string)

	// OnComplete is called when analysis completes successfully.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                   {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int)       {}
func (n *NoOpProgressReporter) OnGraphBuildingStart(totalFiles int) {}
func (n *NoOpProgressReporter) OnGraphFileProcessed(processedFiles, totalFiles int, fileName string) {
}
func (n *NoOpProgressReporter) OnGraphBuildingComplete(callerCount, edgeCount int, duration time.Duration) {
}
func (n *NoOpProgressReporter) OnExported(name, path string) {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)      {}
