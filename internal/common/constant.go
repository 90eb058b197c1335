package common

// Folder names of the on-disk layout:
//
//	<root>/drafts/messages/<uuid>.json
//	<root>/<party>/messages/<uuid>.json
//	<root>/<party>/assets/<name>
const (
	DraftsFolder   = "drafts"
	MessagesFolder = "messages"
	AssetsFolder   = "assets"

	// DocumentExt is the extension of message documents.
	DocumentExt = ".json"
)
