package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
)

// ArchivePrefix is the blob key prefix every archived export is written under.
const ArchivePrefix = "exports/"

const archiveStamp = "20060102T150405.000Z"

// Archive keeps timestamped export envelopes in a blob store.
type Archive struct {
	blobs blob.Store
}

// NewArchive wraps blobs.
func NewArchive(blobs blob.Store) *Archive {
	return &Archive{blobs: blobs}
}

// Driver reports the backing blob driver.
func (a *Archive) Driver() blob.Driver { return a.blobs.Driver() }

// Save exports kind from st and writes it under exports/<kind>/<stamp>.json.
func (a *Archive) Save(ctx context.Context, st core.State, kind Kind, now time.Time) (blob.Info, error) {
	env, err := Export(st, kind, now)
	if err != nil {
		return blob.Info{}, err
	}
	raw, err := Encode(env)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode envelope: %w", err)
	}
	key := path.Join(ArchivePrefix, string(kind), now.UTC().Format(archiveStamp)+".json")
	info, err := a.blobs.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"type": string(kind), "version": fmt.Sprint(Version)},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive %s: %w", kind, err)
	}
	return info, nil
}

// List returns archived exports of kind, oldest first. An empty kind lists all.
func (a *Archive) List(ctx context.Context, kind Kind) ([]blob.Info, error) {
	prefix := ArchivePrefix
	if kind != "" {
		prefix = path.Join(ArchivePrefix, string(kind)) + "/"
	}
	infos, err := a.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	out := infos[:0]
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Load reads and decodes one archived envelope.
func (a *Archive) Load(ctx context.Context, key string) (Envelope, error) {
	if !strings.HasPrefix(key, ArchivePrefix) {
		return Envelope{}, fmt.Errorf("key %q is outside the archive", key)
	}
	_, rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return Envelope{}, err
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return Envelope{}, fmt.Errorf("read %s: %w", key, err)
	}
	return Decode(raw)
}

// Prune deletes the oldest exports of kind beyond keep and returns how many
// were removed.
func (a *Archive) Prune(ctx context.Context, kind Kind, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	infos, err := a.List(ctx, kind)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := 0; i < len(infos)-keep; i++ {
		ok, err := a.blobs.Delete(ctx, infos[i].Key)
		if err != nil {
			return removed, fmt.Errorf("prune %s: %w", infos[i].Key, err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
