package model

// Correction 规范化修正日志条目
type Correction struct {
	Label  string `json:"label"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// UsageEstimate 用量与费用估算（仅供参考）
type UsageEstimate struct {
	Tier             int     `json:"tier"`
	Calls            int     `json:"calls"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// QualityCheck 单项质量检查
type QualityCheck struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Weight   int    `json:"weight"`
	Detail   string `json:"detail"`
}

// RuleFinding 连载规则检查结果，Status 为 pass、warn 或 fail
type RuleFinding struct {
	Rule    string   `json:"rule"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Details []string `json:"details,omitempty"`
}

// QualityReport 规则化质量报告（仅供参考）
type QualityReport struct {
	Score      int            `json:"score"`
	MaxScore   int            `json:"max_score"`
	Percentage float64        `json:"percentage"`
	Grade      string         `json:"grade"`
	Checks     []QualityCheck `json:"checks"`
	// Rules 不计分
	Rules []RuleFinding `json:"rules"`
}

// Result 单集生成结果
type Result struct {
	SeriesID          string         `json:"series_id"`
	InstallmentNumber int            `json:"installment_number"`
	Title             string         `json:"title"`
	Text              string         `json:"text"`
	CharCount         int            `json:"char_count"`
	Strategy          Strategy       `json:"strategy"`
	Corrections       []Correction   `json:"corrections"`
	Warnings          []string       `json:"warnings"`
	Usage             UsageEstimate  `json:"usage"`
	Quality           *QualityReport `json:"quality,omitempty"`
	Regenerated       bool           `json:"regenerated"`
	Rewrites          int            `json:"rewrites"`
}
