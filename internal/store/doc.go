// Package store owns the in-memory collection of messages and keeps it in
// sync with the shared folder tree:
//
//	<root>/drafts/messages/<id>.json
//	<root>/drafts/assets/
//	<root>/<party>/messages/<id>.json
//	<root>/<party>/assets/
//
// Every party folder holds the conversation with that counterpart. The
// tree is shared with external writers (a sync client), so the store
// watches it with fsnotify and re-validates the disk before acting.
//
// Writes and watch callbacks are serialized on one mutex. Listeners are
// invoked after the mutex is released, so they may call back into the
// store.
package store
