// Package repository persists domain entities through the kv substrate.
// Primary records are keyed `entity_type:id`; secondary index entries are
// keyed `collection:foreign_key:entity_id` and hold the primary id.
package repository

import "fmt"

const (
	requestKeyPrefix = "request:"
	queuedKeyPrefix  = "queued:"
	// reqsession points a request at the session that claimed it, which is
	// what status polling resolves.
	reqSessionKeyPrefix = "reqsession:"
	workerKeyPrefix     = "worker:"
	sessionKeyPrefix    = "session:"
	messageKeyPrefix    = "message:"

	byRequesterPrefix = "byrequester:"
	byWorkerPrefix    = "byworker:"
	bySessionPrefix   = "bysession:"
)

func requestKey(id string) string    { return requestKeyPrefix + id }
func queuedKey(id string) string     { return queuedKeyPrefix + id }
func reqSessionKey(id string) string { return reqSessionKeyPrefix + id }
func workerKey(id string) string     { return workerKeyPrefix + id }
func sessionKey(id string) string    { return sessionKeyPrefix + id }
func messageKey(id string) string    { return messageKeyPrefix + id }

func byRequesterKey(requesterID, sessionID string) string {
	return byRequesterPrefix + requesterID + ":" + sessionID
}

func byWorkerKey(workerID, sessionID string) string {
	return byWorkerPrefix + workerID + ":" + sessionID
}

// bySessionKey zero-pads the sequence number so a prefix scan comes back in
// transcript order even on backends that return keys sorted.
func bySessionKey(sessionID string, seq int) string {
	return fmt.Sprintf("%s%s:%06d", bySessionPrefix, sessionID, seq)
}
