// Package watch re-triggers evaluation when input files change.
//
// Watch observes the parent directories of the given files with fsnotify,
// so atomic saves and late-created files are seen, and debounces bursts of
// events into one callback per quiet period.
package watch
