package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FixtureProvider serves emails from a directory of JSON files, one Email per
// file. Used by the demo seed and by tests; keeps the pipeline runnable
// without a live mailbox.
type FixtureProvider struct {
	Dir string
}

func NewFixtureProvider(dir string) *FixtureProvider { return &FixtureProvider{Dir: dir} }

func (p *FixtureProvider) FetchSince(ctx context.Context, credential string, after time.Time, max int) ([]Email, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	// stable order so repeated scans see the same sequence
	sort.Strings(names)

	var out []Email
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(p.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", name, err)
		}
		var em Email
		if err := json.Unmarshal(raw, &em); err != nil {
			return nil, fmt.Errorf("parse fixture %s: %w", name, err)
		}
		if !em.ReceivedAt.After(after) {
			continue
		}
		out = append(out, em)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}
