package analyzer

import "os"

// DefaultMinBytes is the file size below which a summary saves nothing:
// small files cost fewer tokens read whole than summarized.
const DefaultMinBytes = 2048

// ShouldUseTLDR decides whether a host pre-read hook should substitute a
// compact summary for the raw file. It is a cheap stat-based check: the file
// must have a registered extractor and be large enough that a summary can
// plausibly win. It never reads the file.
func (a *Analyzer) ShouldUseTLDR(path string) bool {
	resolved := a.resolve(path)
	if a.registry.For(resolved) == nil {
		return false
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Size() >= DefaultMinBytes
}

// Supported reports whether any registered extractor handles the path.
func (a *Analyzer) Supported(path string) bool {
	return a.registry.For(path) != nil
}
