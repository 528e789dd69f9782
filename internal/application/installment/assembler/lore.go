package assembler

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/workflow/node"
)

// loreSections 标题（或标题中任一两字以上词）出现在大纲中的设定条目
func (a *Assembler) loreSections(ctx context.Context, req *model.Request) []model.Section {
	var out []model.Section
	if a.lore != nil {
		titles, err := a.lore.ListTitles(ctx, req.SeriesID)
		if err != nil {
			a.degrade(ctx, "lore titles", err)
		}
		for _, title := range matchTitles(titles, req.Outline, a.cfg.MaxLoreSections) {
			sec, err := a.lore.GetByTitle(ctx, req.SeriesID, title)
			if err != nil {
				a.degrade(ctx, "lore section "+title, err)
				continue
			}
			body := node.TruncateByRunes(strings.TrimSpace(sec.Body), a.cfg.LoreBudgetChars)
			out = append(out, model.Section{Kind: model.SectionLore, Body: "### " + sec.Title + "\n" + body})
		}
	}
	if excerpt := strings.TrimSpace(req.References.WorldExcerpt); excerpt != "" {
		out = append(out, model.Section{Kind: model.SectionLore, Body: "### 세계관 참고\n" + excerpt})
	}
	return out
}

func matchTitles(titles []string, outline string, limit int) []string {
	var matched []string
	for _, title := range titles {
		if limit > 0 && len(matched) >= limit {
			break
		}
		if titleMentioned(title, outline) {
			matched = append(matched, title)
		}
	}
	return matched
}

func titleMentioned(title, outline string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	if strings.Contains(outline, title) {
		return true
	}
	for _, tok := range titleTokens(title) {
		if strings.Contains(outline, tok) {
			return true
		}
	}
	return false
}

// titleTokens 按空白与标点切分标题，只保留两字以上的词
func titleTokens(title string) []string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
