package answerdesk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answerdesk/answerdesk/ai/mock"
)

func newTestPlatform(t *testing.T) *Platform {
	t.Helper()
	p, err := NewPlatform(filepath.Join(t.TempDir(), "test_db"),
		WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNewPlatform(t *testing.T) {
	t.Run("create new platform", func(t *testing.T) {
		p := newTestPlatform(t)
		assert.NotNil(t, p.Store())
		assert.NotNil(t, p.Provider())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		p, err := NewPlatform(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, p)
	})
}

func TestPlatform_FactoryMethods(t *testing.T) {
	p := newTestPlatform(t)

	t.Run("can create resolution engine", func(t *testing.T) {
		engine, err := p.NewResolutionEngine()
		require.NoError(t, err)
		require.NotNil(t, engine)
		engine.Release()
	})

	t.Run("can create orchestrator", func(t *testing.T) {
		orchestrator, err := p.NewOrchestrator()
		require.NoError(t, err)
		require.NotNil(t, orchestrator)
		orchestrator.Release()
	})

	t.Run("can create scheduler", func(t *testing.T) {
		orchestrator, err := p.NewOrchestrator()
		require.NoError(t, err)
		defer orchestrator.Release()

		scheduler, err := p.NewScheduler(orchestrator)
		require.NoError(t, err)
		require.NotNil(t, scheduler)
	})
}
