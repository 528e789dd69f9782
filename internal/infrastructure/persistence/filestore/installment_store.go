// Package filestore 提供基于目录的分集存档与设定集存储（CLI 使用）
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
)

var (
	installmentFile   = regexp.MustCompile(`^제(\d+)화\.md$`)
	installmentHeader = regexp.MustCompile(`^#\s*제(\d+)화(?::\s*(.*))?\s*$`)
)

// InstallmentStore 分集存档：<dir>/<series>/제N화.md
type InstallmentStore struct {
	dir string
}

var _ repository.InstallmentRepository = (*InstallmentStore)(nil)

// NewInstallmentStore 创建目录存档
func NewInstallmentStore(dir string) *InstallmentStore {
	return &InstallmentStore{dir: dir}
}

func (s *InstallmentStore) path(seriesID string, number int) string {
	return filepath.Join(s.dir, seriesID, fmt.Sprintf("제%d화.md", number))
}

func (s *InstallmentStore) Get(ctx context.Context, seriesID string, number int) (*entity.Installment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(seriesID, number))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	title, body := parseInstallment(string(data))
	inst := entity.NewInstallment(seriesID, number, title)
	inst.SetContent(body)
	return inst, nil
}

func (s *InstallmentStore) ListRecent(ctx context.Context, seriesID string, before int, limit int) ([]*entity.Installment, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, seriesID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var numbers []int
	for _, e := range entries {
		m := installmentFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n < before {
			numbers = append(numbers, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))
	if limit > 0 && len(numbers) > limit {
		numbers = numbers[:limit]
	}

	out := make([]*entity.Installment, 0, len(numbers))
	for _, n := range numbers {
		inst, err := s.Get(ctx, seriesID, n)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Save 覆盖写入，先写临时文件再重命名
func (s *InstallmentStore) Save(ctx context.Context, inst *entity.Installment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(inst.SeriesID, inst.Number)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeAtomic(path, []byte(renderInstallment(inst)))
}

func renderInstallment(inst *entity.Installment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 제%d화", inst.Number)
	if t := strings.TrimSpace(inst.Title); t != "" {
		b.WriteString(": ")
		b.WriteString(t)
	}
	b.WriteString("\n\n---\n\n")
	b.WriteString(strings.TrimSpace(inst.Content))
	b.WriteString("\n")
	return b.String()
}

// parseInstallment 去掉标题头与分隔线，返回标题和正文；无标题头时整体视为正文
func parseInstallment(data string) (string, string) {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	first, rest, found := strings.Cut(data, "\n")
	m := installmentHeader.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return "", strings.TrimSpace(data)
	}
	if !found {
		return strings.TrimSpace(m[2]), ""
	}
	rest = strings.TrimLeft(rest, "\n")
	if strings.HasPrefix(rest, "---\n") || rest == "---" {
		rest = strings.TrimPrefix(rest, "---")
	}
	return strings.TrimSpace(m[2]), strings.TrimSpace(rest)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
