package filestore

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
)

const (
	loreFile  = "lore.md"
	stateFile = "state.yaml"
)

// LoreStore 设定集目录：<dir>/<series>/lore.md 按 "## 标题" 切分条目，
// 当前状态保存在 <dir>/<series>/state.yaml
type LoreStore struct {
	dir string
}

var (
	_ repository.LoreRepository  = (*LoreStore)(nil)
	_ repository.StateRepository = (*LoreStore)(nil)
)

// NewLoreStore 创建目录设定集
func NewLoreStore(dir string) *LoreStore {
	return &LoreStore{dir: dir}
}

func (s *LoreStore) sections(ctx context.Context, seriesID string) ([]*entity.LoreSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, seriesID, loreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return parseLore(seriesID, string(data)), nil
}

func (s *LoreStore) ListTitles(ctx context.Context, seriesID string) ([]string, error) {
	secs, err := s.sections(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(secs))
	for _, sec := range secs {
		titles = append(titles, sec.Title)
	}
	return titles, nil
}

func (s *LoreStore) GetByTitle(ctx context.Context, seriesID, title string) (*entity.LoreSection, error) {
	secs, err := s.sections(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, repository.ErrNotFound
	}
	for _, sec := range secs {
		if sec.Title == title {
			return sec, nil
		}
	}
	lower := strings.ToLower(title)
	for _, sec := range secs {
		if strings.Contains(strings.ToLower(sec.Title), lower) {
			return sec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *LoreStore) GetCurrent(ctx context.Context, seriesID string) (*entity.StateSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, seriesID, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var snap entity.StateSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.SeriesID == "" {
		snap.SeriesID = seriesID
	}
	return &snap, nil
}

func (s *LoreStore) Save(ctx context.Context, snap *entity.StateSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, snap.SeriesID, stateFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// parseLore 按二级标题切分；首个 "##" 之前的内容忽略
func parseLore(seriesID, data string) []*entity.LoreSection {
	var (
		out  []*entity.LoreSection
		cur  *entity.LoreSection
		body strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.Body = strings.TrimSpace(body.String())
			out = append(out, cur)
		}
		body.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "## ") {
			flush()
			cur = &entity.LoreSection{
				SeriesID:  seriesID,
				Title:     strings.TrimSpace(strings.TrimPrefix(line, "## ")),
				SortOrder: len(out),
			}
			continue
		}
		if cur != nil {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return out
}
