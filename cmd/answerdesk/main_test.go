package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/answerdesk/answerdesk/core"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  core.ScheduleMode
	}{
		{"disabled", core.ScheduleDisabled},
		{"once", core.ScheduleOnce},
		{"daily", core.ScheduleDaily},
		{"WEEKLY", core.ScheduleWeekly},
	}
	for _, tt := range tests {
		got, err := parseMode(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseMode("hourly")
	assert.Error(t, err)
}

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays([]string{"monday", "Friday"})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, days)

	days, err = parseWeekdays(nil)
	require.NoError(t, err)
	assert.Empty(t, days)

	_, err = parseWeekdays([]string{"someday"})
	assert.Error(t, err)
}

func TestCollectSources(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	set.Var(cli.NewStringSlice("https://example.com/a", "https://example.com/b"), "url", "")
	set.Var(cli.NewStringSlice("guide.md"), "doc", "")
	c := cli.NewContext(cli.NewApp(), set, nil)

	sources := collectSources(c)
	require.Len(t, sources, 3)
	assert.Equal(t, core.SourceTypeWebsite, sources[0].Type)
	assert.Equal(t, "https://example.com/a", sources[0].Locator)
	assert.Equal(t, core.SourceTypeDocument, sources[2].Type)
	assert.Equal(t, "guide.md", sources[2].Locator)
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	set.String("log-level", "verbose", "")
	c := cli.NewContext(cli.NewApp(), set, nil)

	err := setupLogger(c)
	assert.Error(t, err)
}

func TestIndexCommandRequiresDB(t *testing.T) {
	app := &cli.App{
		Name: "answerdesk",
		Commands: []*cli.Command{
			{
				Name:   "index",
				Action: indexCommand,
				Flags:  commonFlags(),
			},
		},
	}

	err := app.Run([]string{"answerdesk", "index", "--chatbot", "bot-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
