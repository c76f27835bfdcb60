package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChunk() *KnowledgeChunk {
	return &KnowledgeChunk{
		ChatbotID: "bot-1",
		Source:    SourceRef{Type: SourceTypeWebsite, Locator: "https://example.com/faq"},
		Index:     0,
		Text:      "We ship worldwide.",
		Hash:      HashText("We ship worldwide."),
	}
}

func TestValidateChunk(t *testing.T) {
	require.NoError(t, ValidateChunk(validChunk()))

	chunk := validChunk()
	chunk.ChatbotID = ""
	assert.ErrorIs(t, ValidateChunk(chunk), ErrEmptyChatbotID)

	chunk = validChunk()
	chunk.Source.Locator = ""
	assert.ErrorIs(t, ValidateChunk(chunk), ErrEmptyLocator)

	chunk = validChunk()
	chunk.Source.Type = SourceType(42)
	assert.ErrorIs(t, ValidateChunk(chunk), ErrInvalidSourceType)

	chunk = validChunk()
	chunk.Index = -1
	assert.ErrorIs(t, ValidateChunk(chunk), ErrInvalidChunk)

	chunk = validChunk()
	chunk.Text = ""
	assert.ErrorIs(t, ValidateChunk(chunk), ErrEmptyText)

	assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
}

func TestValidateChunk_EmptyVectorAllowed(t *testing.T) {
	chunk := validChunk()
	chunk.Vector = nil
	assert.NoError(t, ValidateChunk(chunk), "a chunk without an embedding is still valid")
}

func TestValidateCacheEntry(t *testing.T) {
	entry := &CacheEntry{
		ChatbotID: "bot-1",
		Question:  "do you ship to canada?",
		Hash:      HashText("do you ship to canada?"),
		Answer:    "Yes, we ship to Canada.",
	}
	require.NoError(t, ValidateCacheEntry(entry))

	entry.Answer = ""
	assert.ErrorIs(t, ValidateCacheEntry(entry), ErrEmptyAnswer)
	assert.ErrorIs(t, ValidateCacheEntry(nil), ErrInvalidCacheEntry)
}

func TestValidateOverride(t *testing.T) {
	override := &ManualOverride{
		ChatbotID: "bot-1",
		Question:  "what is the refund window?",
		Hash:      HashText("what is the refund window?"),
		Answer:    "30 days from delivery.",
	}
	require.NoError(t, ValidateOverride(override))

	override.Question = ""
	assert.ErrorIs(t, ValidateOverride(override), ErrEmptyText)
}

func TestValidateJob(t *testing.T) {
	job := &IndexingJob{ChatbotID: "bot-1", Status: JobStatusPending, TotalTasks: 3}
	require.NoError(t, ValidateJob(job))

	job.CompletedTasks = 2
	job.FailedTasks = 2
	assert.ErrorIs(t, ValidateJob(job), ErrCounterOverflow)

	job = &IndexingJob{ChatbotID: "bot-1", CompletedTasks: -1}
	assert.ErrorIs(t, ValidateJob(job), ErrInvalidJob)
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name    string
		sched   *ReindexSchedule
		wantErr error
	}{
		{
			name:  "disabled needs nothing else",
			sched: &ReindexSchedule{ChatbotID: "bot-1", Mode: ScheduleDisabled},
		},
		{
			name: "valid daily",
			sched: &ReindexSchedule{
				ChatbotID: "bot-1", Mode: ScheduleDaily,
				TimeOfDay: "03:00", Timezone: "America/New_York",
			},
		},
		{
			name: "valid once",
			sched: &ReindexSchedule{
				ChatbotID: "bot-1", Mode: ScheduleOnce,
				TimeOfDay: "12:30", OnceDate: "2024-06-01",
			},
		},
		{
			name:    "bad time of day",
			sched:   &ReindexSchedule{ChatbotID: "bot-1", Mode: ScheduleDaily, TimeOfDay: "25:99"},
			wantErr: ErrInvalidTimeOfDay,
		},
		{
			name: "bad timezone",
			sched: &ReindexSchedule{
				ChatbotID: "bot-1", Mode: ScheduleDaily,
				TimeOfDay: "03:00", Timezone: "Mars/Olympus",
			},
			wantErr: ErrInvalidTimezone,
		},
		{
			name: "once without date",
			sched: &ReindexSchedule{
				ChatbotID: "bot-1", Mode: ScheduleOnce, TimeOfDay: "03:00",
			},
			wantErr: ErrInvalidSchedule,
		},
		{
			name:    "missing chatbot id",
			sched:   &ReindexSchedule{Mode: ScheduleDaily, TimeOfDay: "03:00"},
			wantErr: ErrEmptyChatbotID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.sched)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("09:45")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseTimeOfDay("9:45pm")
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
}
