package shard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ggufkit/ggufkit/bytesio"
	"github.com/ggufkit/ggufkit/container"
	"github.com/ggufkit/ggufkit/content"
	"github.com/ggufkit/ggufkit/name"
	"golang.org/x/sync/errgroup"
)

// Write plans c against cfg and emits every resulting shard to its own
// file under cfg.OutputDir in parallel, returning the written paths in
// shard order.
func Write(ctx context.Context, c *content.Content, base name.FileName, cfg OutputConfig) ([]string, error) {
	shards, err := Plan(c, cfg)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(shards))
	for i := range shards {
		fn := base
		if len(shards) > 1 {
			fn = base.WithShard(uint32(i+1), uint32(len(shards)))
		} else {
			fn.Shard = name.Single()
		}
		paths[i], err = uniquePath(cfg.OutputDir, fn.String())
		if err != nil {
			return nil, err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range shards {
		i, s := i, s
		g.Go(func() error {
			return writeShard(ctx, paths[i], c, s)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// uniquePath joins dir and name, appending " (k)" before the extension
// for the smallest free k >= 1 if the plain path already exists.
func uniquePath(dir, fileName string) (string, error) {
	candidate := filepath.Join(dir, fileName)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(fileName)
	stem := fileName[:len(fileName)-len(ext)]
	for k := 1; ; k++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, k, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}

func writeShard(ctx context.Context, path string, c *content.Content, s Shard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bytesio.NewWriter(f)
	kvCount := uint64(1)
	if s.HasMeta {
		kvCount += uint64(len(c.MetaKeys()))
	}
	if err := container.WriteHeader(w, uint64(len(s.Tensors)), kvCount); err != nil {
		return err
	}

	align := container.NewMetaMap()
	align.Set("general.alignment", uint32(c.Alignment))
	if err := container.WriteMetaMap(w, align); err != nil {
		return err
	}
	if s.HasMeta {
		full := container.NewMetaMap()
		for _, k := range c.MetaKeys() {
			v, _ := c.MetaGet(k)
			full.Set(k, v)
		}
		if err := container.WriteMetaMap(w, full); err != nil {
			return err
		}
	}

	offset := uint64(0)
	infos := make([]container.TensorInfo, len(s.Tensors))
	for i, tname := range s.Tensors {
		t, ok := c.TensorGet(tname)
		if !ok {
			return &MissingTensorError{Name: tname}
		}
		offset += uint64(bytesio.Padding(int64(offset), int64(c.Alignment)))
		info := container.TensorInfo{Name: tname, Shape: t.Shape, Type: t.Type, Offset: offset}
		if err := container.WriteTensorInfo(w, info); err != nil {
			return err
		}
		n, err := info.Size()
		if err != nil {
			return err
		}
		offset += n
		infos[i] = info
	}

	for _, tname := range s.Tensors {
		if err := w.WritePadding(int64(c.Alignment)); err != nil {
			return err
		}
		t, _ := c.TensorGet(tname)
		data, err := t.Data.Get()
		if err != nil {
			return err
		}
		if err := w.WriteBytes(data); err != nil {
			return err
		}
	}
	return w.Flush()
}
