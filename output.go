package main

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/cppmeta/internal/meta"
	"github.com/phobologic/cppmeta/internal/serialize"
)

const (
	metaSuffix    = ".h.meta"
	statsFileName = "meta_stats.json"
)

// cacheIsFresh reports whether the stamp at cachePath is newer than every
// unit.
func cacheIsFresh(cachePath string, units []unit) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, u := range units {
		fi, err := os.Stat(u.path)
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

// touchCache records a successful run.
func touchCache(cachePath string) error {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano) + "\n")
	if err := os.WriteFile(cachePath, stamp, 0o644); err != nil {
		return errors.Errorf("writing cache stamp: %w", err)
	}
	return nil
}

func filterBySize(ctx context.Context, units []unit, maxSize int64) []unit {
	if maxSize <= 0 {
		return units
	}
	var kept []unit
	for _, u := range units {
		if u.size > maxSize {
			slogctx.Warn(ctx, "Skipped large file",
				"path", u.rel,
				"size", humanize.Bytes(uint64(u.size)),
				"limit", humanize.Bytes(uint64(maxSize)))
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// metaPath maps a root-relative source path to its metadata file path
// under outDir: "ui/widget.hpp" becomes "ui/widget.h.meta".
func metaPath(outDir, rel string) string {
	base := strings.TrimSuffix(rel, path.Ext(rel))
	return filepath.Join(outDir, filepath.FromSlash(base+metaSuffix))
}

// writeIfChanged writes data to name unless the file already holds it.
// It reports whether the file was written.
func writeIfChanged(name string, data []byte) (bool, error) {
	if old, err := os.ReadFile(name); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return false, errors.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return false, errors.Errorf("writing %s: %w", name, err)
	}
	return true, nil
}

// outputResult counts what writeOutputs did.
type outputResult struct {
	Files     int `json:"files"`
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
}

// writeOutputs serializes every non-empty database of data under outDir.
func writeOutputs(ctx context.Context, outDir string, data *meta.DataMap) (outputResult, error) {
	var res outputResult
	for _, rel := range data.Files() {
		db, _ := data.Lookup(rel)
		doc, ok, err := serialize.Document(db)
		if err != nil {
			return res, errors.Errorf("serializing %s: %w", rel, err)
		}
		if !ok {
			continue
		}
		res.Files++

		name := metaPath(outDir, rel)
		written, err := writeIfChanged(name, doc)
		if err != nil {
			return res, err
		}
		if written {
			res.Written++
			slogctx.Debug(ctx, "Wrote metadata", "path", name)
		} else {
			res.Unchanged++
		}
	}
	return res, nil
}

// runStats is the meta_stats.json summary of a run.
type runStats struct {
	Version   string       `json:"version"`
	Units     []unitStat   `json:"units"`
	Output    outputResult `json:"output"`
	ElapsedMS float64      `json:"elapsed_ms"`
}

func writeStats(outDir string, stats runStats) error {
	data, err := json.Marshal(stats, jsontext.WithIndent("  "))
	if err != nil {
		return errors.Errorf("encoding stats: %w", err)
	}
	data = append(data, '\n')
	if _, err := writeIfChanged(filepath.Join(outDir, statsFileName), data); err != nil {
		return err
	}
	return nil
}
