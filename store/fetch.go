package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"

	"github.com/prompteng/ape/errors"
)

// Fetch downloads a template pack from src into dst. Sources use the
// go-getter syntax, so http(s), git, s3 and plain local paths all work.
func Fetch(ctx context.Context, src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "resolving working directory")
	}

	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeAny,
	}
	if err := client.Get(); err != nil {
		return errors.Wrapf(err, "fetching template pack from %q", src)
	}
	return nil
}

// ImportDir saves every *.prompt file under dir, using the filename
// (extension stripped) as the template name. Files that fail validation
// are skipped with a warning; the import continues.
func (s *Store) ImportDir(ctx context.Context, dir string) ([]Record, error) {
	var records []Record

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".prompt") {
			return nil
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}

		name := strings.TrimSuffix(filepath.Base(path), ".prompt")
		rec, err := s.Save(ctx, name, string(body))
		if err != nil {
			s.log.Warnw("skipping template", "path", path, "error", err)
			return nil
		}
		records = append(records, *rec)
		return nil
	})
	if err != nil {
		return records, errors.Wrapf(err, "importing %s", dir)
	}
	if len(records) == 0 {
		return nil, errors.Newf("no valid *.prompt files under %s", dir)
	}
	return records, nil
}

// FetchAndImport downloads a pack into a temporary directory and
// imports everything it contains
func (s *Store) FetchAndImport(ctx context.Context, src string) ([]Record, error) {
	tmp, err := os.MkdirTemp("", "ape-templates-")
	if err != nil {
		return nil, errors.Wrap(err, "creating staging directory")
	}
	defer os.RemoveAll(tmp)

	dst := filepath.Join(tmp, "pack")
	if err := Fetch(ctx, src, dst); err != nil {
		return nil, err
	}
	return s.ImportDir(ctx, dst)
}
