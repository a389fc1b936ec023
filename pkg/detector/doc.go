// Package detector defines the detector capability Bastion dispatches checks
// to, and the startup-time registry that resolves plugin keys to
// implementations.
//
// A detector is an opaque scoring function over text. The rule layer invokes
// it uniformly regardless of whether it is a local heuristic or a remote
// model-backed service, and interprets only the numeric score it returns.
//
// Registration is explicit and happens once at startup, from configuration.
// There is no runtime code loading: adding a check by name means registering
// a named implementation of the Detector interface.
package detector
