// Package state contains the in-memory core.StateStore implementation holding
// small key/value application state per session. The contract resides in the
// core package; depend on core.StateStore in your code and select an
// implementation at wiring time.
package state
