package model

// Beat 节拍式生成中的一个场景单元
type Beat struct {
	Seq         int    `json:"seq"`
	Scene       string `json:"scene"`
	TargetChars int    `json:"target_chars"`
	Tone        string `json:"tone"`
	KeyEvents   string `json:"key_events"`
	ClosingLine string `json:"closing_line"`
}

// ParagraphScore 段落评分，只在编辑阶段内使用
type ParagraphScore struct {
	Index    int
	Score    int
	Feedback string
}
