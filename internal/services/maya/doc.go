// Package maya drives the speech-model sidecar process that turns voice
// prompts into audio token streams and hierarchical codes into PCM.
//
// The sidecar is launched once per daemon run, loads the model, and then
// serves newline-delimited JSON requests on stdin with matching responses
// on stdout. Its handshake reports the token stream parameters and the
// capability flags (concurrent generation, sampler state reset) that size
// the synthesis worker pool. Tests can swap in fakes through the Engine
// and Decoder interfaces to avoid loading the real model.
package maya
