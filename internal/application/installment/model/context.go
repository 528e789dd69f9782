package model

import "strings"

// SectionKind 上下文段落类型
type SectionKind string

const (
	SectionOutline      SectionKind = "outline"
	SectionStructure    SectionKind = "structure"
	SectionPriorTail    SectionKind = "prior_tail"
	SectionPriorSummary SectionKind = "prior_summary"
	SectionState        SectionKind = "state"
	SectionLore         SectionKind = "lore"
	SectionStyle        SectionKind = "style"
	SectionVoice        SectionKind = "voice"
	SectionCharacters   SectionKind = "characters"
)

// sectionOrder 段落在提示词中的固定顺序
var sectionOrder = []SectionKind{
	SectionOutline,
	SectionStructure,
	SectionPriorTail,
	SectionPriorSummary,
	SectionState,
	SectionLore,
	SectionStyle,
	SectionVoice,
	SectionCharacters,
}

var sectionHeadings = map[SectionKind]string{
	SectionOutline:      "설계도",
	SectionStructure:    "구조 메모",
	SectionPriorTail:    "이전 화 마지막 장면",
	SectionPriorSummary: "이전 화 요약",
	SectionState:        "현재 상태",
	SectionLore:         "설정집 발췌",
	SectionStyle:        "문체 참고 문장",
	SectionVoice:        "인물별 말투 참고",
	SectionCharacters:   "등장인물",
}

// Section 上下文中的一个段落
type Section struct {
	Kind SectionKind
	Body string
}

// Heading 段落标题
func (s Section) Heading() string {
	return sectionHeadings[s.Kind]
}

// GenerationContext 单次请求的生成上下文，构建后只读
type GenerationContext struct {
	sections   []Section
	characters []string
}

// NewGenerationContext 按固定顺序整理段落，空段落丢弃
func NewGenerationContext(sections []Section, characterNames []string) *GenerationContext {
	byKind := make(map[SectionKind]string, len(sections))
	for _, s := range sections {
		body := strings.TrimSpace(s.Body)
		if body == "" {
			continue
		}
		if prev, ok := byKind[s.Kind]; ok {
			body = prev + "\n\n" + body
		}
		byKind[s.Kind] = body
	}

	gc := &GenerationContext{
		characters: append([]string(nil), characterNames...),
	}
	for _, kind := range sectionOrder {
		if body, ok := byKind[kind]; ok {
			gc.sections = append(gc.sections, Section{Kind: kind, Body: body})
		}
	}
	return gc
}

// Sections 返回段落副本
func (c *GenerationContext) Sections() []Section {
	if c == nil {
		return nil
	}
	return append([]Section(nil), c.sections...)
}

// Section 按类型取段落正文
func (c *GenerationContext) Section(kind SectionKind) string {
	if c == nil {
		return ""
	}
	for _, s := range c.sections {
		if s.Kind == kind {
			return s.Body
		}
	}
	return ""
}

// CharacterNames 上下文中出场的人物名
func (c *GenerationContext) CharacterNames() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.characters...)
}

// Render 渲染为提示词文本
func (c *GenerationContext) Render() string {
	return c.RenderWithout()
}

// RenderWithout 渲染时跳过指定段落
func (c *GenerationContext) RenderWithout(skip ...SectionKind) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range c.sections {
		if containsKind(skip, s.Kind) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(s.Heading())
		b.WriteString("\n")
		b.WriteString(s.Body)
	}
	return b.String()
}

func containsKind(kinds []SectionKind, k SectionKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}
