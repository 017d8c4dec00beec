// Package opencodeclient adapts github.com/sst/opencode-sdk-go to the
// narrow Client interface the execution engine drives: create a
// session, send a prompt, read back its transcript, and subscribe to
// the session-filtered event stream.
//
// SDKClient retries backend calls with github.com/cenkalti/backoff/v4
// and optionally rate-limits them with golang.org/x/time/rate. Fake is
// an in-memory Client for tests that never touches the network.
package opencodeclient
