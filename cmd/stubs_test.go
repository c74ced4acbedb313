package main

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cleaner/internal/pipeline"
	"github.com/sells-group/lead-cleaner/internal/store"
	"github.com/sells-group/lead-cleaner/pkg/anthropic"
)

// testLLM answers every classification with "Si".
type testLLM struct{}

func (testLLM) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: "Si"}},
		StopReason: "end_turn",
	}, nil
}

// testDoH implements doh.Client with fixed MX hosts.
type testDoH struct{ hosts []string }

func (d *testDoH) LookupMX(_ context.Context, _ string) ([]string, error) {
	return d.hosts, nil
}

// testUploader records the last uploaded filename. Safe across goroutines
// because serve runs datasets in the background.
type testUploader struct {
	mu   sync.Mutex
	link string
	last string
}

func (u *testUploader) Upload(_ context.Context, r io.Reader, fileName string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	u.mu.Lock()
	u.last = fileName
	u.mu.Unlock()
	return u.link, nil
}

func (u *testUploader) uploaded() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

// testSender records notification subjects.
type testSender struct {
	mu       sync.Mutex
	subjects []string
}

func (s *testSender) Send(_ context.Context, subject, _ string, _ []string) error {
	s.mu.Lock()
	s.subjects = append(s.subjects, subject)
	s.mu.Unlock()
	return nil
}

func (s *testSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subjects...)
}

// newTestEnv wires a cleanerEnv over a throwaway sqlite store and stubbed
// network collaborators.
func newTestEnv(t *testing.T) (*cleanerEnv, *testUploader, *testSender) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	up := &testUploader{link: "https://example.com/f"}
	sender := &testSender{}

	providers := pipeline.NewProviderClassifier(
		&testDoH{hosts: []string{"aspmx.l.google.com"}},
		nil,
		pipeline.ProviderClassifierOptions{Timeout: time.Second, Delay: time.Millisecond},
	)
	proc := pipeline.NewProcessor(testLLM{}, providers, up, sender, nil, pipeline.ProcessorOptions{
		BundleSize: 2,
		Classify: pipeline.LeadClassifierOptions{
			Model:       "test-model",
			Timeout:     time.Second,
			MaxAttempts: 1,
			RetryDelay:  time.Millisecond,
		},
		Recipients: []string{"ops@sells.group"},
	})

	return &cleanerEnv{Store: st, Processor: proc}, up, sender
}
