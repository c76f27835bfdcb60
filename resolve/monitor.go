package resolve

import (
	"github.com/answerdesk/answerdesk/core"
	"github.com/answerdesk/answerdesk/storage"
)

// ResolutionMonitor provides hooks to observe the resolution process.
// Implement this interface to track which tier answered a question and
// what the retrieval stage saw along the way.
type ResolutionMonitor interface {
	Start(chatbotID, normalizedQuestion string)
	OverrideHit(override *core.ManualOverride, score float32)
	CacheHit(entry *core.CacheEntry, score float32)
	EmbeddingUnavailable(err error)
	AfterRetrieval(matches []*storage.ChunkMatch)
	Finish(answer *Answer, err error)
}

// noopMonitor is a no-op implementation of ResolutionMonitor
type noopMonitor struct{}

var _ ResolutionMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                              {}
func (n *noopMonitor) OverrideHit(_ *core.ManualOverride, _ float32)  {}
func (n *noopMonitor) CacheHit(_ *core.CacheEntry, _ float32)         {}
func (n *noopMonitor) EmbeddingUnavailable(_ error)                   {}
func (n *noopMonitor) AfterRetrieval(_ []*storage.ChunkMatch)         {}
func (n *noopMonitor) Finish(_ *Answer, _ error)                      {}
