/*
Package server implements msgpack IPC for symbol search.

The server reads a stream of msgpack messages from stdin and writes msgpack
responses to stdout. Logs never go to stdout.

# IPC

Each message is a map with an "id" field chosen by the client. Query
requests carry the raw keystroke input and an optional result limit:

	{"id": "q7", "q": "cgroup_fr", "l": 20}

Queries of one connection form a session: every query supersedes the ones
before it, and a superseded query never gets a response. A client typing
fast therefore sees responses only for the keystrokes the engine caught up
with, always in keystroke order. The response echoes the id and the
session sequence number:

	{"id": "q7", "seq": 7, "r": [{"k": "cgroup_free", "d": "cgroup_free(struct cgroup **cgroup)", "m": "prefix", "r": 1}], "c": 1, "deg": false, "t": 83}

"t" is the query time in microseconds. "deg" is set when a shard the input
needed could not be loaded in time; "fail" then lists the shard ids.

Control requests carry an action instead of a query:

	{"id": "c1", "action": "stats"}
	{"id": "c2", "action": "preload"}
	{"id": "c3", "action": "reload"}

Failures are reported as {"id", "e", "c"} with an HTTP-like code.
*/
package server

// Request is any client message. Action selects a control operation;
// without one the message is a query.
type Request struct {
	ID     string `msgpack:"id"`
	Query  string `msgpack:"q"`
	Limit  int    `msgpack:"l,omitempty"`
	Action string `msgpack:"action,omitempty"`
}

// HitPayload is one ranked hit.
type HitPayload struct {
	Key         string `msgpack:"k"`
	Name        string `msgpack:"n"`
	DisplayName string `msgpack:"d"`
	Anchor      string `msgpack:"a"`
	SourceLabel string `msgpack:"f,omitempty"`
	Category    string `msgpack:"c"`
	Match       string `msgpack:"m"`
	Rank        uint16 `msgpack:"r"`
}

// QueryResponse answers the latest query of the session.
type QueryResponse struct {
	ID        string       `msgpack:"id"`
	Seq       uint64       `msgpack:"seq"`
	Hits      []HitPayload `msgpack:"r"`
	Count     int          `msgpack:"c"`
	Degraded  bool         `msgpack:"deg"`
	Failed    []string     `msgpack:"fail,omitempty"`
	TimeTaken int64        `msgpack:"t"`
}

// StatsPayload describes the engine state.
type StatsPayload struct {
	Keys            int            `msgpack:"keys"`
	Entries         int            `msgpack:"entries"`
	Generation      uint64         `msgpack:"generation"`
	MergedShards    int            `msgpack:"merged_shards"`
	AvailableShards int            `msgpack:"available_shards"`
	ResidentShards  int            `msgpack:"resident_shards"`
	FailedShards    int            `msgpack:"failed_shards"`
	Cache           map[string]int `msgpack:"cache"`
}

// ControlResponse answers a control request.
type ControlResponse struct {
	ID     string        `msgpack:"id"`
	Status string        `msgpack:"status"`
	Error  string        `msgpack:"error,omitempty"`
	Stats  *StatsPayload `msgpack:"stats,omitempty"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
