// Package daemon coordinates the long-running clipperd process.
//
// It wires configuration, the SQLite store, the clip storage backend, the
// upload service and the analytics aggregator behind one HTTP API, with a
// flock-based lock preventing multiple instances from sharing a data
// directory. Routing uses gorilla/mux; gorilla/handlers supplies CORS, panic
// recovery and access logging.
package daemon
