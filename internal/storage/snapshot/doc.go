// Package snapshot writes and reads full dumps of the filter registry.
//
// A snapshot is the only durable artifact: on restart the newest valid
// snapshot is the recovered state. File layout:
//
//	snapshot-<timestamp>-<sequence>.snap
//	[magic:8 "BGFSNAP1"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (JSON filter records, or encrypted bytes)
//	[checksum:32 SHA-256 of all bytes above]
//
// Files are written to a temp path and renamed into place, so readers never
// observe a partial snapshot. Load walks from newest to oldest and skips
// files that fail the magic or checksum verification.
package snapshot
