// Package common contains shared constants and sentinel errors used across
// gophnotes components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RootID is the synthetic parent of every notebook. No item carries it as
// its own id.
const RootID = "root"

// ConflictsNotebookID is the fixed id of the notebook that receives items
// orphaned by a merge.
const ConflictsNotebookID = "conflicts"

// ModelVersion is the snapshot format version written by this build.
// Snapshots with a greater version are rejected as conflicting schema.
const ModelVersion = 1

// SnapshotFileName is the object/file name used by file-like drivers.
const SnapshotFileName = "collection.json"
