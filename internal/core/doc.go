// Package core provides the dataset upload service.
//
// The package sits between the HTTP layer and the ingestion pipeline. It
// has no transport dependencies and is used by the web server and tests.
//
// # Upload flow
//
//  1. [Service.Upload] checks the listing details and takes a slot from the
//     [UploadLimiter]; a caller that waits too long gets [ErrTooManyUploads].
//  2. The ingestion pipeline validates, parses and cleans the file, then
//     derives metadata, a preview, a quality score and a schema check.
//  3. The record is saved with status pending. The stored document omits
//     rows; the payload holds the full table.
//  4. The payload is written to the content store (status stored) and the
//     listing is registered (status published).
//
// Steps 1-3 fail the upload. Step 4 does not: the dataset stays pending or
// stored and [Service.StartPublishScheduler] retries it later.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. See
// error_messages.go for the code reference.
package core
