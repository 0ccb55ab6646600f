// Package bundle moves archive blocks between stores as deterministic TAR
// files.
//
// Layout:
//
//	blocks/<cid>   raw block bytes, one entry per block
//	index.json     optional, non-authoritative: block list and labels
//
// Blocks are always re-derived from their bytes; the index is only metadata.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/ipfs/go-cid"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/digest"
	"xdao.co/bloom/storage"
)

// FormatVersion is the current index schema version.
const FormatVersion = 1

const (
	blocksDir = "blocks/"
	indexName = "index.json"
)

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls Export.
type ExportOptions struct {
	// Labels maps human names (for example envelope file names) to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex writes index.json after the blocks.
	IncludeIndex bool
}

// Manifest describes what Import read.
type Manifest struct {
	// Blocks are the imported CIDs in bundle order.
	Blocks []cid.Cid
	// Labels come from index.json when present.
	Labels map[string]cid.Cid
}

func bundleError(rule, msg string, cause error) error {
	return bloomerr.Wrap(bloomerr.KindStorage, rule, "bundle: "+msg, cause)
}

// Export writes the blocks for ids to w. Output bytes depend only on the set
// of ids and the options: entries are sorted, headers are normalized and the
// index is canonical JSON.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return bundleError("BLOOM-BDL-001", "nil CAS", nil)
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	blocks := make([]any, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		b, err := cas.Get(id)
		if err != nil {
			return fail(err)
		}
		got, err := cidutil.CIDv1RawSHA3512CID(b)
		if err != nil {
			return fail(bundleError("BLOOM-BDL-900", "derive cid", err))
		}
		if got != id {
			return fail(storage.ErrCIDMismatch)
		}
		if err := writeFile(tw, blocksDir+s, b); err != nil {
			return fail(err)
		}
		blocks = append(blocks, map[string]any{"cid": s, "size": len(b)})
	}

	if opts.IncludeIndex {
		labels := make(map[string]any, len(opts.Labels))
		for k, v := range opts.Labels {
			if k == "" {
				return fail(bundleError("BLOOM-BDL-002", "empty label name", nil))
			}
			if !v.Defined() {
				return fail(storage.ErrInvalidCID)
			}
			labels[k] = v.String()
		}
		idx := map[string]any{
			"version":   FormatVersion,
			"cidCodec":  "raw",
			"multihash": digest.Algorithm,
			"blocks":    blocks,
		}
		if len(labels) > 0 {
			idx["labels"] = labels
		}
		raw, err := json.Marshal(idx)
		if err != nil {
			return fail(bundleError("BLOOM-BDL-011", "encode index", err))
		}
		b, err := jcs.Transform(raw)
		if err != nil {
			return fail(bundleError("BLOOM-BDL-011", "canonicalize index", err))
		}
		if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
			return fail(err)
		}
	}

	if err := tw.Close(); err != nil {
		return bundleError("BLOOM-BDL-003", "finish tar", err)
	}
	return nil
}

// ImportOptions controls ImportWithOptions.
type ImportOptions struct {
	// IgnoreUnknown skips entries outside the bundle layout instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r into cas, failing on unknown entries.
func Import(r io.Reader, cas storage.CAS) (Manifest, error) {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r into cas. Each block must hash to
// the CID in its entry name, and the store must report the same CID back.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) (Manifest, error) {
	var m Manifest
	if cas == nil {
		return m, bundleError("BLOOM-BDL-001", "nil CAS", nil)
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return m, bundleError("BLOOM-BDL-004", "read tar", err)
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return m, bundleError("BLOOM-BDL-005", "invalid entry path "+h.Name, nil)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return m, bundleError("BLOOM-BDL-006", "unexpected entry type for "+name, nil)
		}

		if name == indexName {
			b, err := io.ReadAll(tr)
			if err != nil {
				return m, bundleError("BLOOM-BDL-004", "read index", err)
			}
			labels, err := parseLabels(b)
			if err != nil {
				return m, err
			}
			m.Labels = labels
			continue
		}
		if !strings.HasPrefix(name, blocksDir) {
			if opts.IgnoreUnknown {
				continue
			}
			return m, bundleError("BLOOM-BDL-007", "unknown entry "+name, nil)
		}

		id, derr := cid.Decode(strings.TrimPrefix(name, blocksDir))
		if derr != nil || !id.Defined() {
			return m, storage.ErrInvalidCID
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return m, bundleError("BLOOM-BDL-004", "read block", err)
		}
		got, err := cidutil.CIDv1RawSHA3512CID(payload)
		if err != nil {
			return m, bundleError("BLOOM-BDL-900", "derive cid", err)
		}
		if got != id {
			return m, storage.ErrCIDMismatch
		}
		if _, ok := seen[id.String()]; ok {
			return m, bundleError("BLOOM-BDL-008", "duplicate block "+id.String(), nil)
		}
		seen[id.String()] = struct{}{}

		putID, err := cas.Put(payload)
		if err != nil {
			return m, err
		}
		if putID != id {
			return m, storage.ErrCIDMismatch
		}
		m.Blocks = append(m.Blocks, id)
	}
}

func parseLabels(b []byte) (map[string]cid.Cid, error) {
	var idx struct {
		Version int               `json:"version"`
		Labels  map[string]string `json:"labels"`
	}
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, bundleError("BLOOM-BDL-009", "decode index", err)
	}
	if idx.Version != FormatVersion {
		return nil, bundleError("BLOOM-BDL-010", "unsupported index version", nil)
	}
	if len(idx.Labels) == 0 {
		return nil, nil
	}
	out := make(map[string]cid.Cid, len(idx.Labels))
	for k, v := range idx.Labels {
		id, err := cid.Decode(v)
		if err != nil {
			return nil, storage.ErrInvalidCID
		}
		out[k] = id
	}
	return out, nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return bundleError("BLOOM-BDL-003", "write header "+name, err)
	}
	if _, err := io.Copy(tw, bytes.NewReader(content)); err != nil {
		return bundleError("BLOOM-BDL-003", "write "+name, err)
	}
	return nil
}

// cleanTarPath normalises an entry name and returns "" for anything that could
// escape the bundle root.
func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return strings.Join(parts, "/")
}
