package lore

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serial-novel-engine/internal/domain/entity"
	"serial-novel-engine/internal/domain/repository"
	"serial-novel-engine/pkg/errors"
)

type fakeSource struct {
	sections []*entity.LoreSection
	state    *entity.StateSnapshot
}

func (f *fakeSource) ListTitles(_ context.Context, _ string) ([]string, error) {
	out := make([]string, 0, len(f.sections))
	for _, s := range f.sections {
		out = append(out, s.Title)
	}
	return out, nil
}

func (f *fakeSource) GetByTitle(_ context.Context, _ string, title string) (*entity.LoreSection, error) {
	for _, s := range f.sections {
		if s.Title == title {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSource) GetCurrent(_ context.Context, _ string) (*entity.StateSnapshot, error) {
	if f.state == nil {
		return nil, repository.ErrNotFound
	}
	return f.state, nil
}

func (f *fakeSource) Save(_ context.Context, s *entity.StateSnapshot) error {
	f.state = s
	return nil
}

type fakeTx struct{ calls int }

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeWriter struct {
	got []*entity.LoreSection
	err error
}

func (w *fakeWriter) ReplaceAll(_ context.Context, _ string, sections []*entity.LoreSection) error {
	if w.err != nil {
		return w.err
	}
	w.got = sections
	return nil
}

type fakeInvalidator struct{ series []string }

func (f *fakeInvalidator) InvalidateSeries(_ context.Context, seriesID string) error {
	f.series = append(f.series, seriesID)
	return nil
}

func TestImport_ReplacesSectionsAndState(t *testing.T) {
	src := &fakeSource{
		sections: []*entity.LoreSection{{Title: "세계관", Body: "무림"}, {Title: "인물", Body: "주인공"}},
		state:    &entity.StateSnapshot{Location: "화산"},
	}
	tx := &fakeTx{}
	w := &fakeWriter{}
	dst := &fakeSource{}
	inv := &fakeInvalidator{}

	res, err := NewImporter(tx, src, w, dst, inv).Import(context.Background(), "murim")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sections)
	assert.True(t, res.State)
	assert.Equal(t, 1, tx.calls)
	require.Len(t, w.got, 2)
	assert.Equal(t, 1, w.got[1].SortOrder)
	assert.Equal(t, "murim", w.got[0].SeriesID)
	assert.Equal(t, "murim", dst.state.SeriesID)
	assert.Equal(t, []string{"murim"}, inv.series)
}

func TestImport_WithoutState(t *testing.T) {
	src := &fakeSource{sections: []*entity.LoreSection{{Title: "세계관"}}}
	dst := &fakeSource{}
	res, err := NewImporter(&fakeTx{}, src, &fakeWriter{}, dst, nil).Import(context.Background(), "murim")
	require.NoError(t, err)
	assert.False(t, res.State)
	assert.Nil(t, dst.state)
}

func TestImport_WriteFailure(t *testing.T) {
	src := &fakeSource{sections: []*entity.LoreSection{{Title: "세계관"}}}
	w := &fakeWriter{err: stderrors.New("boom")}
	inv := &fakeInvalidator{}
	_, err := NewImporter(&fakeTx{}, src, w, &fakeSource{}, inv).Import(context.Background(), "murim")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDatabaseError))
	assert.Empty(t, inv.series)
}

func TestImport_RequiresSeries(t *testing.T) {
	_, err := NewImporter(&fakeTx{}, &fakeSource{}, &fakeWriter{}, &fakeSource{}, nil).Import(context.Background(), "")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidParam))
}
