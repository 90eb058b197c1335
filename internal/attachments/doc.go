// Package attachments relocates pending attachment files into a party's
// assets folder and deletes attachments discarded from a message.
//
// A staging call records every file operation in a Batch so the caller can
// undo the whole batch when the surrounding write fails:
//
//	b, err := mgr.Stage(ctx, assetsDir, msg.NewAttachments, attachments.ModeCopy)
//	if err != nil { ... }
//	if err := writeDocument(); err != nil {
//	    _ = b.Rollback()
//	}
//
// Names are unique within an assets folder. A colliding name gets a fresh
// random prefix; an existing file is never overwritten.
package attachments
