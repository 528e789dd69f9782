package normalize

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Tables 规范化校正表
type Tables struct {
	Terminology     []Replacement `yaml:"terminology"`
	VersionGate     []string      `yaml:"version_gate"`
	Voice           []VoiceRule   `yaml:"voice"`
	RepeatedPhrases []PhraseRule  `yaml:"repeated_phrases"`
	SentenceEndings []EndingRule  `yaml:"sentence_endings"`
}

// Replacement 一组固定替换
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// VoiceRule 人物台词中的语体校正
type VoiceRule struct {
	Character    string        `yaml:"character"`
	Replacements []Replacement `yaml:"replacements"`
}

// PhraseRule 高频短语及其轮换替代
type PhraseRule struct {
	Phrase       string   `yaml:"phrase"`
	Alternatives []string `yaml:"alternatives"`
}

// EndingRule 句尾模式及其替代
type EndingRule struct {
	Suffix       string   `yaml:"suffix"`
	Alternatives []string `yaml:"alternatives"`
}

// LoadTables 读取 YAML 校正表；path 为空时返回内置表
func LoadTables(path string) (*Tables, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTables(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read normalizer tables %s: %w", path, err)
	}
	return ParseTables(b)
}

// ParseTables 解析 YAML 校正表
func ParseTables(b []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse normalizer tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	t.compose()
	return &t, nil
}

func (t *Tables) validate() error {
	for i, r := range t.Terminology {
		if r.From == "" {
			return fmt.Errorf("terminology[%d]: empty from", i)
		}
	}
	for i, v := range t.Voice {
		if strings.TrimSpace(v.Character) == "" {
			return fmt.Errorf("voice[%d]: empty character", i)
		}
		for j, r := range v.Replacements {
			if r.From == "" {
				return fmt.Errorf("voice[%d].replacements[%d]: empty from", i, j)
			}
		}
	}
	for i, p := range t.RepeatedPhrases {
		if p.Phrase == "" || len(p.Alternatives) == 0 {
			return fmt.Errorf("repeated_phrases[%d]: phrase and alternatives required", i)
		}
	}
	for i, e := range t.SentenceEndings {
		if e.Suffix == "" || len(e.Alternatives) == 0 {
			return fmt.Errorf("sentence_endings[%d]: suffix and alternatives required", i)
		}
	}
	return nil
}

// compose 表项统一为 NFC，与正文匹配口径一致
func (t *Tables) compose() {
	nfc := norm.NFC.String
	for i := range t.Terminology {
		t.Terminology[i].From = nfc(t.Terminology[i].From)
		t.Terminology[i].To = nfc(t.Terminology[i].To)
	}
	for i := range t.VersionGate {
		t.VersionGate[i] = nfc(t.VersionGate[i])
	}
	for i := range t.Voice {
		t.Voice[i].Character = nfc(t.Voice[i].Character)
		for j := range t.Voice[i].Replacements {
			t.Voice[i].Replacements[j].From = nfc(t.Voice[i].Replacements[j].From)
			t.Voice[i].Replacements[j].To = nfc(t.Voice[i].Replacements[j].To)
		}
	}
	for i := range t.RepeatedPhrases {
		t.RepeatedPhrases[i].Phrase = nfc(t.RepeatedPhrases[i].Phrase)
		for j := range t.RepeatedPhrases[i].Alternatives {
			t.RepeatedPhrases[i].Alternatives[j] = nfc(t.RepeatedPhrases[i].Alternatives[j])
		}
	}
	for i := range t.SentenceEndings {
		t.SentenceEndings[i].Suffix = nfc(t.SentenceEndings[i].Suffix)
		for j := range t.SentenceEndings[i].Alternatives {
			t.SentenceEndings[i].Alternatives[j] = nfc(t.SentenceEndings[i].Alternatives[j])
		}
	}
}

// DefaultTables 内置校正表
func DefaultTables() *Tables {
	t := &Tables{
		Terminology: []Replacement{
			{From: "천마 신교", To: "천마신교"},
			{From: "매화 검법", To: "매화검법"},
			{From: "화산 파", To: "화산파"},
			{From: "기 운", To: "기운"},
		},
		VersionGate: []string{},
		Voice: []VoiceRule{
			{
				Character: "천마",
				Replacements: []Replacement{
					{From: "하십시오", To: "해라"},
					{From: "하시지요", To: "해라"},
					{From: "합니다", To: "한다"},
					{From: "입니다", To: "이다"},
				},
			},
		},
		RepeatedPhrases: []PhraseRule{
			{Phrase: "차가운 눈빛", Alternatives: []string{"서늘한 시선", "얼음 같은 눈길"}},
			{Phrase: "입꼬리가 올라갔다", Alternatives: []string{"입가에 웃음이 번졌다", "희미한 웃음이 스쳤다"}},
			{Phrase: "숨을 삼켰다", Alternatives: []string{"숨이 턱 막혔다", "호흡이 멎었다"}},
		},
		SentenceEndings: []EndingRule{
			{Suffix: "했다.", Alternatives: []string{"한 것이다.", "하였다."}},
			{Suffix: "었다.", Alternatives: []string{"었던 것이다."}},
			{Suffix: "았다.", Alternatives: []string{"았던 것이다."}},
		},
	}
	t.compose()
	return t
}
