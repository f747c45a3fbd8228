// Package workshop implements the client side of the remote download
// service's job protocol.
//
// # Protocol
//
// A download is a job on the remote service:
//
//  1. Submit: POST {api}/download/request with {"publishedFileId": id, "downloadFormat": "raw"};
//     the answer carries the job uuid.
//  2. Status: POST {api}/download/status with {"uuids": [uuid]}; the answer
//     maps each uuid to its status, progress and storage location.
//  3. Fetch: once the job is "prepared" at 100%, GET
//     {scheme}://{storageNode}{prefix}{storagePath}?uuid={uuid} streams the zip.
//
// The leading segment of the storage path is the owning app id, exposed as
// Job.AppID.
//
// Wire types live in the dto subpackage.
package workshop
