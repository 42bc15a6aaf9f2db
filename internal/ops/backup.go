package ops

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// manifestName is the first entry of every backup archive.
const manifestName = "manifest.json"

// snapshotManifest records what a backup captured: one sha256 per session
// artifact (session.json, session.db and its WAL, content overrides).
// Restore refuses archives whose contents do not match their manifest, so
// a truncated or tampered backup fails loud instead of reviving a corrupt
// economy snapshot.
type snapshotManifest struct {
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string]string `json:"files"`
}

// BackupDataDir archives the session data directory into a tar.gz led by a
// digest manifest.
func BackupDataDir(srcDir, archivePath string) error {
	srcDir = filepath.Clean(strings.TrimSpace(srcDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if srcDir == "" || archivePath == "" {
		return fmt.Errorf("srcDir and archivePath are required")
	}
	info, err := os.Stat(srcDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source is not a directory: %s", srcDir)
	}

	rels, err := collectArtifacts(srcDir)
	if err != nil {
		return err
	}

	man := snapshotManifest{
		CreatedAt: time.Now().UTC(),
		Files:     make(map[string]string, len(rels)),
	}
	for _, rel := range rels {
		digest, err := fileDigest(filepath.Join(srcDir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		man.Files[rel] = digest
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	manBytes, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     manifestName,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(manBytes)),
		ModTime:  man.CreatedAt,
	}); err != nil {
		return err
	}
	if _, err := tw.Write(manBytes); err != nil {
		return err
	}

	for _, rel := range rels {
		path := filepath.Join(srcDir, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, file)
		file.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// collectArtifacts lists the regular files under the data dir, slash-form
// relative paths in walk order. Symlinks are skipped so a backup never
// follows a link out of the data dir.
func collectArtifacts(srcDir string) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == manifestName {
			return fmt.Errorf("data dir contains reserved file name %s", manifestName)
		}
		rels = append(rels, rel)
		return nil
	})
	return rels, err
}

// RestoreDataDir unpacks a backup into destDir, verifying every artifact
// against the archive's manifest. Entries escaping the destination,
// entries absent from the manifest, digest mismatches, and manifest files
// missing from the archive are all fatal.
func RestoreDataDir(archivePath, destDir string) error {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	destDir = filepath.Clean(strings.TrimSpace(destDir))
	if archivePath == "" || destDir == "" {
		return fmt.Errorf("archivePath and destDir are required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	man, err := readManifest(tr)
	if err != nil {
		return err
	}

	restored := make(map[string]bool, len(man.Files))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, destDir+string(os.PathSeparator)) && target != destDir {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		want, ok := man.Files[hdr.Name]
		if !ok {
			return fmt.Errorf("archive entry %s is not in the manifest", hdr.Name)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
		if err != nil {
			return err
		}
		h := sha256.New()
		_, err = io.Copy(out, io.TeeReader(tr, h))
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if got := hex.EncodeToString(h.Sum(nil)); got != want {
			return fmt.Errorf("digest mismatch for %s: manifest=%s archive=%s", hdr.Name, want, got)
		}
		restored[hdr.Name] = true
	}

	for rel := range man.Files {
		if !restored[rel] {
			return fmt.Errorf("manifest entry %s missing from archive", rel)
		}
	}
	return nil
}

func readManifest(tr *tar.Reader) (*snapshotManifest, error) {
	hdr, err := tr.Next()
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if hdr.Name != manifestName {
		return nil, fmt.Errorf("archive does not start with %s (got %s)", manifestName, hdr.Name)
	}
	var man snapshotManifest
	if err := json.NewDecoder(tr).Decode(&man); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if man.Files == nil {
		man.Files = map[string]string{}
	}
	return &man, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
