// Copyright 2025 AnswerDesk Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/answerdesk/answerdesk/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every record type stored in the knowledge store.
// The format is positional: fields are written in struct order with no
// tags, so reordering a struct field is a breaking format change.
var (
	SourceRefMUS  = sourceRefSer{}
	ChunkMUS      = chunkSer{}
	CacheEntryMUS = cacheEntrySer{}
	OverrideMUS   = overrideSer{}
	JobMUS        = jobSer{}
	TaskMUS       = taskSer{}
	ScheduleMUS   = scheduleSer{}

	timeMUS    = timeSer{}
	weekdayMUS = weekdaySer{}

	vectorMUS      = ord.NewSliceSer[float32](varint.Float32)
	stringSliceMUS = ord.NewSliceSer[string](ord.String)
	metadataMUS    = ord.NewMapSer[string, string](ord.String, ord.String)
	sourcesMUS     = ord.NewSliceSer[core.SourceRef](SourceRefMUS)
	weekdaysMUS    = ord.NewSliceSer[time.Weekday](weekdayMUS)
)

// timeSer encodes a time.Time as a presence flag followed by Unix
// microseconds. The flag keeps zero times round-trippable: IsZero holds
// after decode, which status logic depends on.
type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) (n int) {
	if t.IsZero() {
		return ord.Bool.Marshal(false, bs)
	}
	n = ord.Bool.Marshal(true, bs)
	n += varint.Int64.Marshal(t.UnixMicro(), bs[n:])
	return n
}

func (timeSer) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return
	}
	var (
		micros int64
		n1     int
	)
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t = time.UnixMicro(micros).UTC()
	return
}

func (timeSer) Size(t time.Time) (size int) {
	size = ord.Bool.Size(false)
	if !t.IsZero() {
		size += varint.Int64.Size(t.UnixMicro())
	}
	return size
}

func (s timeSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type weekdaySer struct{}

func (weekdaySer) Marshal(d time.Weekday, bs []byte) (n int) {
	return varint.Int.Marshal(int(d), bs)
}

func (weekdaySer) Unmarshal(bs []byte) (d time.Weekday, n int, err error) {
	v, n, err := varint.Int.Unmarshal(bs)
	return time.Weekday(v), n, err
}

func (weekdaySer) Size(d time.Weekday) (size int) {
	return varint.Int.Size(int(d))
}

func (weekdaySer) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

type sourceRefSer struct{}

func (sourceRefSer) Marshal(r core.SourceRef, bs []byte) (n int) {
	n = varint.Int.Marshal(int(r.Type), bs)
	n += ord.String.Marshal(r.Locator, bs[n:])
	return n
}

func (sourceRefSer) Unmarshal(bs []byte) (r core.SourceRef, n int, err error) {
	var (
		typ int
		n1  int
	)
	typ, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	r.Type = core.SourceType(typ)
	r.Locator, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (sourceRefSer) Size(r core.SourceRef) (size int) {
	return varint.Int.Size(int(r.Type)) + ord.String.Size(r.Locator)
}

func (s sourceRefSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type chunkSer struct{}

func (chunkSer) Marshal(c core.KnowledgeChunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.ChatbotID, bs)
	n += SourceRefMUS.Marshal(c.Source, bs[n:])
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += varint.Uint64.Marshal(uint64(c.Hash), bs[n:])
	n += vectorMUS.Marshal(c.Vector, bs[n:])
	n += metadataMUS.Marshal(c.Metadata, bs[n:])
	n += timeMUS.Marshal(c.InsertedAt, bs[n:])
	n += timeMUS.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (chunkSer) Unmarshal(bs []byte) (c core.KnowledgeChunk, n int, err error) {
	var n1 int
	if c.ChatbotID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.Source, n1, err = SourceRefMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	var h uint64
	if h, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	c.Hash = core.Hash(h)
	n += n1
	if c.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	c.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkSer) Size(c core.KnowledgeChunk) (size int) {
	size = ord.String.Size(c.ChatbotID)
	size += SourceRefMUS.Size(c.Source)
	size += varint.Int.Size(c.Index)
	size += ord.String.Size(c.Text)
	size += varint.Uint64.Size(uint64(c.Hash))
	size += vectorMUS.Size(c.Vector)
	size += metadataMUS.Size(c.Metadata)
	size += timeMUS.Size(c.InsertedAt)
	size += timeMUS.Size(c.UpdatedAt)
	return size
}

func (s chunkSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type cacheEntrySer struct{}

func (cacheEntrySer) Marshal(e core.CacheEntry, bs []byte) (n int) {
	n = ord.String.Marshal(e.ChatbotID, bs)
	n += ord.String.Marshal(e.Question, bs[n:])
	n += varint.Uint64.Marshal(uint64(e.Hash), bs[n:])
	n += vectorMUS.Marshal(e.Vector, bs[n:])
	n += ord.String.Marshal(e.Answer, bs[n:])
	n += stringSliceMUS.Marshal(e.FollowUps, bs[n:])
	n += varint.Int.Marshal(e.HitCount, bs[n:])
	n += timeMUS.Marshal(e.LastUsedAt, bs[n:])
	n += timeMUS.Marshal(e.InsertedAt, bs[n:])
	return n
}

func (cacheEntrySer) Unmarshal(bs []byte) (e core.CacheEntry, n int, err error) {
	var n1 int
	if e.ChatbotID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if e.Question, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	var h uint64
	if h, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	e.Hash = core.Hash(h)
	n += n1
	if e.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.Answer, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.FollowUps, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.HitCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.LastUsedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	e.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (cacheEntrySer) Size(e core.CacheEntry) (size int) {
	size = ord.String.Size(e.ChatbotID)
	size += ord.String.Size(e.Question)
	size += varint.Uint64.Size(uint64(e.Hash))
	size += vectorMUS.Size(e.Vector)
	size += ord.String.Size(e.Answer)
	size += stringSliceMUS.Size(e.FollowUps)
	size += varint.Int.Size(e.HitCount)
	size += timeMUS.Size(e.LastUsedAt)
	size += timeMUS.Size(e.InsertedAt)
	return size
}

func (s cacheEntrySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type overrideSer struct{}

func (overrideSer) Marshal(o core.ManualOverride, bs []byte) (n int) {
	n = ord.String.Marshal(o.ChatbotID, bs)
	n += ord.String.Marshal(o.Question, bs[n:])
	n += varint.Uint64.Marshal(uint64(o.Hash), bs[n:])
	n += vectorMUS.Marshal(o.Vector, bs[n:])
	n += ord.String.Marshal(o.Answer, bs[n:])
	n += ord.String.Marshal(o.PreviousAnswer, bs[n:])
	n += ord.String.Marshal(o.ConversationID, bs[n:])
	n += varint.Int.Marshal(o.UseCount, bs[n:])
	n += timeMUS.Marshal(o.InsertedAt, bs[n:])
	n += timeMUS.Marshal(o.UpdatedAt, bs[n:])
	return n
}

func (overrideSer) Unmarshal(bs []byte) (o core.ManualOverride, n int, err error) {
	var n1 int
	if o.ChatbotID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if o.Question, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	var h uint64
	if h, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	o.Hash = core.Hash(h)
	n += n1
	if o.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	if o.Answer, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	if o.PreviousAnswer, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	if o.ConversationID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	if o.UseCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	if o.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return o, n + n1, err
	}
	n += n1
	o.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (overrideSer) Size(o core.ManualOverride) (size int) {
	size = ord.String.Size(o.ChatbotID)
	size += ord.String.Size(o.Question)
	size += varint.Uint64.Size(uint64(o.Hash))
	size += vectorMUS.Size(o.Vector)
	size += ord.String.Size(o.Answer)
	size += ord.String.Size(o.PreviousAnswer)
	size += ord.String.Size(o.ConversationID)
	size += varint.Int.Size(o.UseCount)
	size += timeMUS.Size(o.InsertedAt)
	size += timeMUS.Size(o.UpdatedAt)
	return size
}

func (s overrideSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type jobSer struct{}

func (jobSer) Marshal(j core.IndexingJob, bs []byte) (n int) {
	n = ord.String.Marshal(j.ID, bs)
	n += ord.String.Marshal(j.ChatbotID, bs[n:])
	n += varint.Int.Marshal(int(j.Status), bs[n:])
	n += varint.Int.Marshal(j.TotalTasks, bs[n:])
	n += varint.Int.Marshal(j.CompletedTasks, bs[n:])
	n += varint.Int.Marshal(j.FailedTasks, bs[n:])
	n += ord.String.Marshal(j.Error, bs[n:])
	n += ord.String.Marshal(j.RetryOf, bs[n:])
	n += timeMUS.Marshal(j.CreatedAt, bs[n:])
	n += timeMUS.Marshal(j.StartedAt, bs[n:])
	n += timeMUS.Marshal(j.CompletedAt, bs[n:])
	return n
}

func (jobSer) Unmarshal(bs []byte) (j core.IndexingJob, n int, err error) {
	var n1 int
	if j.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if j.ChatbotID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	j.Status = core.JobStatus(status)
	n += n1
	if j.TotalTasks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	if j.CompletedTasks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	if j.FailedTasks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	if j.Error, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	if j.RetryOf, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	if j.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	if j.StartedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return j, n + n1, err
	}
	n += n1
	j.CompletedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (jobSer) Size(j core.IndexingJob) (size int) {
	size = ord.String.Size(j.ID)
	size += ord.String.Size(j.ChatbotID)
	size += varint.Int.Size(int(j.Status))
	size += varint.Int.Size(j.TotalTasks)
	size += varint.Int.Size(j.CompletedTasks)
	size += varint.Int.Size(j.FailedTasks)
	size += ord.String.Size(j.Error)
	size += ord.String.Size(j.RetryOf)
	size += timeMUS.Size(j.CreatedAt)
	size += timeMUS.Size(j.StartedAt)
	size += timeMUS.Size(j.CompletedAt)
	return size
}

func (s jobSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type taskSer struct{}

func (taskSer) Marshal(t core.IndexingTask, bs []byte) (n int) {
	n = ord.String.Marshal(t.ID, bs)
	n += ord.String.Marshal(t.JobID, bs[n:])
	n += SourceRefMUS.Marshal(t.Source, bs[n:])
	n += varint.Int.Marshal(int(t.Status), bs[n:])
	n += ord.String.Marshal(t.Error, bs[n:])
	n += timeMUS.Marshal(t.CreatedAt, bs[n:])
	n += timeMUS.Marshal(t.CompletedAt, bs[n:])
	return n
}

func (taskSer) Unmarshal(bs []byte) (t core.IndexingTask, n int, err error) {
	var n1 int
	if t.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if t.JobID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.Source, n1, err = SourceRefMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	t.Status = core.TaskStatus(status)
	n += n1
	if t.Error, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	t.CompletedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (taskSer) Size(t core.IndexingTask) (size int) {
	size = ord.String.Size(t.ID)
	size += ord.String.Size(t.JobID)
	size += SourceRefMUS.Size(t.Source)
	size += varint.Int.Size(int(t.Status))
	size += ord.String.Size(t.Error)
	size += timeMUS.Size(t.CreatedAt)
	size += timeMUS.Size(t.CompletedAt)
	return size
}

func (s taskSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type scheduleSer struct{}

func (scheduleSer) Marshal(sc core.ReindexSchedule, bs []byte) (n int) {
	n = ord.String.Marshal(sc.ChatbotID, bs)
	n += ord.String.Marshal(sc.OwnerID, bs[n:])
	n += varint.Int.Marshal(int(sc.Mode), bs[n:])
	n += ord.String.Marshal(sc.TimeOfDay, bs[n:])
	n += ord.String.Marshal(sc.Timezone, bs[n:])
	n += weekdaysMUS.Marshal(sc.Weekdays, bs[n:])
	n += ord.String.Marshal(sc.OnceDate, bs[n:])
	n += sourcesMUS.Marshal(sc.Sources, bs[n:])
	n += timeMUS.Marshal(sc.NextRunAt, bs[n:])
	n += varint.Int.Marshal(int(sc.LastRunStatus), bs[n:])
	n += ord.String.Marshal(sc.LastRunError, bs[n:])
	n += ord.String.Marshal(sc.LastJobID, bs[n:])
	n += timeMUS.Marshal(sc.UpdatedAt, bs[n:])
	return n
}

func (scheduleSer) Unmarshal(bs []byte) (sc core.ReindexSchedule, n int, err error) {
	var n1 int
	if sc.ChatbotID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if sc.OwnerID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	var mode int
	if mode, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	sc.Mode = core.ScheduleMode(mode)
	n += n1
	if sc.TimeOfDay, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	if sc.Timezone, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	if sc.Weekdays, n1, err = weekdaysMUS.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	if sc.OnceDate, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	if sc.Sources, n1, err = sourcesMUS.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	if sc.NextRunAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	var runStatus int
	if runStatus, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	sc.LastRunStatus = core.RunStatus(runStatus)
	n += n1
	if sc.LastRunError, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	if sc.LastJobID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return sc, n + n1, err
	}
	n += n1
	sc.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (scheduleSer) Size(sc core.ReindexSchedule) (size int) {
	size = ord.String.Size(sc.ChatbotID)
	size += ord.String.Size(sc.OwnerID)
	size += varint.Int.Size(int(sc.Mode))
	size += ord.String.Size(sc.TimeOfDay)
	size += ord.String.Size(sc.Timezone)
	size += weekdaysMUS.Size(sc.Weekdays)
	size += ord.String.Size(sc.OnceDate)
	size += sourcesMUS.Size(sc.Sources)
	size += timeMUS.Size(sc.NextRunAt)
	size += varint.Int.Size(int(sc.LastRunStatus))
	size += ord.String.Size(sc.LastRunError)
	size += ord.String.Size(sc.LastJobID)
	size += timeMUS.Size(sc.UpdatedAt)
	return size
}

func (s scheduleSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalChunk serializes a KnowledgeChunk to bytes.
func MarshalChunk(chunk *core.KnowledgeChunk) []byte {
	buf := make([]byte, ChunkMUS.Size(*chunk))
	ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a KnowledgeChunk from bytes.
func UnmarshalChunk(data []byte) (*core.KnowledgeChunk, error) {
	chunk, _, err := ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	buf := make([]byte, CacheEntryMUS.Size(*entry))
	CacheEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	entry, _, err := CacheEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalOverride serializes a ManualOverride to bytes.
func MarshalOverride(override *core.ManualOverride) []byte {
	buf := make([]byte, OverrideMUS.Size(*override))
	OverrideMUS.Marshal(*override, buf)
	return buf
}

// UnmarshalOverride deserializes a ManualOverride from bytes.
func UnmarshalOverride(data []byte) (*core.ManualOverride, error) {
	override, _, err := OverrideMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// MarshalJob serializes an IndexingJob to bytes.
func MarshalJob(job *core.IndexingJob) []byte {
	buf := make([]byte, JobMUS.Size(*job))
	JobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalJob deserializes an IndexingJob from bytes.
func UnmarshalJob(data []byte) (*core.IndexingJob, error) {
	job, _, err := JobMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarshalTask serializes an IndexingTask to bytes.
func MarshalTask(task *core.IndexingTask) []byte {
	buf := make([]byte, TaskMUS.Size(*task))
	TaskMUS.Marshal(*task, buf)
	return buf
}

// UnmarshalTask deserializes an IndexingTask from bytes.
func UnmarshalTask(data []byte) (*core.IndexingTask, error) {
	task, _, err := TaskMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarshalSchedule serializes a ReindexSchedule to bytes.
func MarshalSchedule(schedule *core.ReindexSchedule) []byte {
	buf := make([]byte, ScheduleMUS.Size(*schedule))
	ScheduleMUS.Marshal(*schedule, buf)
	return buf
}

// UnmarshalSchedule deserializes a ReindexSchedule from bytes.
func UnmarshalSchedule(data []byte) (*core.ReindexSchedule, error) {
	schedule, _, err := ScheduleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}
