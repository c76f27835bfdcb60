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


// Seeder fills a knowledge store with sample support content, so the
// answerdesk CLI can be tried without crawling a live site. It writes the
// sample pages as documents, indexes them through the orchestrator, and
// installs one manual override.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/answerdesk/answerdesk"
	"github.com/answerdesk/answerdesk/core"
)

var (
	dbPath    = flag.String("db", "./answerdesk_db", "path to the knowledge store directory")
	chatbotID = flag.String("chatbot", "demo", "chatbot ID to seed")
)

var samplePages = map[string]string{
	"getting-started.md": `Getting started with Acme Widgets.
Create an account on the dashboard and pick a plan. The starter plan is
free and includes up to three widgets. After signing up, install the
widget snippet on your site by pasting it before the closing body tag.
Changes to the widget configuration take effect within a minute.`,

	"billing.md": `Billing and plans.
We bill monthly on the day you subscribed. The starter plan is free, the
growth plan costs 29 dollars per month, and the scale plan costs 99
dollars per month. You can upgrade or downgrade at any time from the
billing page; the difference is prorated. Refunds are issued for annual
plans cancelled within 14 days of purchase.`,

	"troubleshooting.md": `Troubleshooting common problems.
If the widget does not appear, check that the snippet is present and that
your content security policy allows our script host. A widget stuck in
the loading state usually means the site key is wrong. Clearing the
browser cache resolves most stale-configuration issues. For anything
else, our support team responds within one business day.`,
}

func main() {
	flag.Parse()
	ctx := context.Background()

	docDir, err := os.MkdirTemp("", "answerdesk-seed")
	if err != nil {
		fatal(err)
	}
	defer os.RemoveAll(docDir)

	for name, text := range samplePages {
		if err := os.WriteFile(filepath.Join(docDir, name), []byte(text), 0644); err != nil {
			fatal(err)
		}
	}

	platform, err := answerdesk.NewPlatform(*dbPath, answerdesk.WithDocumentDir(docDir))
	if err != nil {
		fatal(err)
	}
	defer platform.Close()

	orchestrator, err := platform.NewOrchestrator()
	if err != nil {
		fatal(err)
	}
	defer orchestrator.Release()

	sources := make([]core.SourceRef, 0, len(samplePages))
	for name := range samplePages {
		sources = append(sources, core.SourceRef{
			Type:    core.SourceTypeDocument,
			Locator: name,
		})
	}

	job, err := orchestrator.CreateJob(ctx, *chatbotID, sources)
	if err != nil {
		fatal(err)
	}
	final, err := orchestrator.RunJob(ctx, job.ID)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Indexed %d of %d sample pages (job %s, %s)\n",
		final.CompletedTasks, final.TotalTasks, final.ID, final.Status)

	// A hand-written answer that always beats the generated one.
	question := core.NormalizeQuestion("How do I contact support?")
	override := &core.ManualOverride{
		ChatbotID:  *chatbotID,
		Question:   question,
		Hash:       core.HashText(question),
		Answer:     "Email us at support@acme.example — we reply within one business day.",
		InsertedAt: time.Now().UTC(),
	}
	if vector, embedErr := platform.Provider().Embedder().EmbedText(ctx, question); embedErr == nil {
		override.Vector = core.NormalizeVector(vector)
	}
	if err := platform.Store().Overrides.PutOverride(ctx, override); err != nil {
		fatal(err)
	}
	fmt.Printf("Installed manual override for %q\n", "How do I contact support?")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
