package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/answerdesk/answerdesk/core"
)

// Key prefixes for different data types
const (
	chunkPrefix    = "chu"
	cachePrefix    = "cac"
	overridePrefix = "ovr"
	jobPrefix      = "job"
	jobBotPrefix   = "jobc"
	taskPrefix     = "tsk"
	schedulePrefix = "sch"
)

// sourcePart is a fixed-width digest of a source reference, used inside
// composite keys. Locators are URLs and may contain any delimiter, so
// they are hashed rather than embedded verbatim.
func sourcePart(source core.SourceRef) string {
	digest := core.HashText(fmt.Sprintf("%d|%s", source.Type, source.Locator))
	return fmt.Sprintf("%016x", uint64(digest))
}

// makeChunkBotPrefix generates the key prefix covering all chunks of a chatbot.
func makeChunkBotPrefix(chatbotID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, chatbotID))
}

// makeChunkSourcePrefix generates the key prefix covering one source's chunks.
func makeChunkSourcePrefix(chatbotID string, source core.SourceRef) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", chunkPrefix, chatbotID, sourcePart(source)))
}

// makeChunkKey generates a key for a chunk slot.
// The ordinal is written in BigEndian order so lexicographic iteration
// yields chunks in ordinal order.
func makeChunkKey(chatbotID string, source core.SourceRef, index int) []byte {
	prefix := makeChunkSourcePrefix(chatbotID, source)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(index))
	return buf
}

// makeCacheBotPrefix generates the key prefix covering a chatbot's cache.
func makeCacheBotPrefix(chatbotID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", cachePrefix, chatbotID))
}

// makeCacheKey generates a key for a cache entry by question hash.
func makeCacheKey(chatbotID string, hash core.Hash) []byte {
	prefix := makeCacheBotPrefix(chatbotID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(hash))
	return buf
}

// makeOverrideBotPrefix generates the key prefix covering a chatbot's overrides.
func makeOverrideBotPrefix(chatbotID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", overridePrefix, chatbotID))
}

// makeOverrideKey generates a key for an override by question hash.
func makeOverrideKey(chatbotID string, hash core.Hash) []byte {
	prefix := makeOverrideBotPrefix(chatbotID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(hash))
	return buf
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(jobID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobPrefix, jobID))
}

// makeJobBotPrefix generates the key prefix covering a chatbot's job index.
func makeJobBotPrefix(chatbotID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", jobBotPrefix, chatbotID))
}

// makeJobBotKey generates a composite index key ordering a chatbot's jobs
// by creation time. Format: prefix:timestamp:jobID, timestamp in
// BigEndian order so reverse iteration yields newest first.
func makeJobBotKey(chatbotID string, createdAt time.Time, jobID string) []byte {
	prefix := makeJobBotPrefix(chatbotID)
	buf := make([]byte, len(prefix)+8+len(jobID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], jobID)
	return buf
}

// makeTaskPrefix generates the key prefix covering a job's tasks.
func makeTaskPrefix(jobID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", taskPrefix, jobID))
}

// makeTaskKey generates a key for a task slot within a job.
// The ordinal is written in BigEndian order so iteration yields tasks in
// creation order.
func makeTaskKey(jobID string, index int) []byte {
	prefix := makeTaskPrefix(jobID)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(index))
	return buf
}

// makeScheduleKey generates a key for a chatbot's reindex schedule.
func makeScheduleKey(chatbotID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", schedulePrefix, chatbotID))
}
