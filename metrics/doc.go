// Package metrics provides reload observability for reloadable containers.
//
// A Recorder receives one ObserveReload call per reload attempt and one ObserveSize
// call per successfully loaded snapshot. NopRecorder is the default; Tracker keeps
// in-process counters; LoggingRecorder writes through the eru core logger; the
// datadog sub-package publishes to a DataDog agent.
package metrics
