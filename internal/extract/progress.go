package extract

// ProgressReporter receives callbacks while sources are parsed and extracted.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnParseStart is called before parsing begins.
	OnParseStart(totalFiles int)

	// OnFileParsed is called after each file is parsed.
	OnFileParsed(path string)

	// OnExtractStart is called before extraction begins.
	OnExtractStart(totalFiles int)

	// OnFileExtracted is called after each file is extracted or reused from the cache.
	OnFileExtracted(path string)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnParseStart(totalFiles int)   {}
func (NoOpProgressReporter) OnFileParsed(path string)      {}
func (NoOpProgressReporter) OnExtractStart(totalFiles int) {}
func (NoOpProgressReporter) OnFileExtracted(path string)   {}
