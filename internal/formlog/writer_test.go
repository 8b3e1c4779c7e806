package formlog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wax-intake/internal/domain/submission"
	"wax-intake/internal/formlog"

	"github.com/stretchr/testify/require"
)

func entry(title string) submission.LogEntry {
	return submission.LogEntry{
		Title:      title,
		Artist:     "Miles Davis",
		Genre:      "Jazz",
		Year:       1959,
		Condition:  "Near Mint (NM)",
		Price:      "45.00",
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
		File:       "cover.jpg",
	}
}

func readEntries(t *testing.T, path string) []submission.LogEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []submission.LogEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestWriter_SequentialAppendsKeepOrder(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "forms.json")
	w := formlog.NewWriter(path, nil)
	defer w.Close()
	ctx := context.Background()

	// when
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Append(ctx, entry(fmt.Sprintf("record-%02d", i))))
	}

	// then
	entries := readEntries(t, path)
	require.Len(t, entries, 10)
	for i, e := range entries {
		require.Equal(t, fmt.Sprintf("record-%02d", i), e.Title)
	}
}

func TestWriter_ConcurrentAppendsLoseNothing(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "forms.json")
	w := formlog.NewWriter(path, nil)
	defer w.Close()
	ctx := context.Background()
	const n = 32

	// when
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, w.Append(ctx, entry(fmt.Sprintf("record-%02d", i))))
		}(i)
	}
	wg.Wait()

	// then: valid JSON, every entry present exactly once
	entries := readEntries(t, path)
	require.Len(t, entries, n)
	seen := map[string]bool{}
	for _, e := range entries {
		require.False(t, seen[e.Title], "duplicate entry %s", e.Title)
		seen[e.Title] = true
	}
}

func TestWriter_ReaderNeverObservesPartialFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "forms.json")
	w := formlog.NewWriter(path, nil)
	defer w.Close()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = w.Append(ctx, entry(fmt.Sprintf("record-%02d", i)))
		}
	}()

	// then: every read of the visible file parses, or the file does
	// not exist yet; a half-written document is never observable.
	for {
		select {
		case <-done:
			entries := readEntries(t, path)
			require.Len(t, entries, 50)
			return
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				require.True(t, os.IsNotExist(err))
				continue
			}
			var entries []submission.LogEntry
			require.NoError(t, json.Unmarshal(data, &entries), "observed partial file")
		}
	}
}

func TestWriter_RecoversFromCorruptFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "forms.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"`), 0o644))
	w := formlog.NewWriter(path, nil)
	defer w.Close()

	// when
	require.NoError(t, w.Append(context.Background(), entry("fresh start")))

	// then
	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	require.Equal(t, "fresh start", entries[0].Title)
}

func TestWriter_OneFailureDoesNotBlockTheChain(t *testing.T) {
	// given: the log path is a directory, so the rename step fails
	dir := t.TempDir()
	badPath := filepath.Join(dir, "forms.json")
	require.NoError(t, os.MkdirAll(badPath, 0o755))
	w := formlog.NewWriter(badPath, nil)
	defer w.Close()
	ctx := context.Background()

	// when
	firstErr := w.Append(ctx, entry("doomed"))

	// then: the failed call reports its error, the consumer survives
	require.Error(t, firstErr)
	secondErr := w.Append(ctx, entry("also doomed"))
	require.Error(t, secondErr)
}
