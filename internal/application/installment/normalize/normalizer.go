// Package normalize 提供确定性的正文规范化：无外部调用，同一输入与校正表得到逐字节相同的输出与日志
package normalize

import (
	"golang.org/x/text/unicode/norm"

	"serial-novel-engine/internal/application/installment/model"
)

// 修正日志标签
const (
	LabelTerminology    = "terminology"
	LabelVersionGate    = "version-gate"
	LabelVoice          = "voice"
	LabelRepeatedPhrase = "repeated-phrase"
	LabelSentenceEnding = "sentence-ending"
)

// Transform 纯文本变换
type Transform interface {
	Name() string
	Apply(text string) (string, []model.Correction)
}

// Normalizer 按固定顺序执行变换
type Normalizer struct {
	transforms []Transform
}

// New 使用校正表构建规范化器；tables 为 nil 时使用内置表
func New(tables *Tables) *Normalizer {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Normalizer{
		transforms: []Transform{
			nfcTransform{},
			newTerminology(tables.Terminology),
			newVersionGate(tables.VersionGate),
			newVoice(tables.Voice),
			newRepeatedPhrase(tables.RepeatedPhrases),
			newSentenceEnding(tables.SentenceEndings),
		},
	}
}

// Transforms 返回变换列表（按执行顺序）
func (n *Normalizer) Transforms() []Transform {
	return append([]Transform(nil), n.transforms...)
}

// Normalize 依次执行全部变换并汇总修正日志
func (n *Normalizer) Normalize(text string) (string, []model.Correction) {
	corrections := make([]model.Correction, 0)
	for _, t := range n.transforms {
		var cs []model.Correction
		text, cs = t.Apply(text)
		corrections = append(corrections, cs...)
	}
	return text, corrections
}

// nfcTransform Unicode NFC 合成，不产生日志
type nfcTransform struct{}

func (nfcTransform) Name() string { return "nfc" }

func (nfcTransform) Apply(text string) (string, []model.Correction) {
	return norm.NFC.String(text), nil
}
