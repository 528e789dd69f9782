package dto

import (
	"time"

	"serial-novel-engine/internal/application/installment/model"
	"serial-novel-engine/internal/domain/entity"
)

// GenerateInstallmentRequest 分集生成请求
type GenerateInstallmentRequest struct {
	InstallmentNumber int              `json:"installment_number" binding:"required,gt=0"`
	Title             string           `json:"title" binding:"max=255"`
	Outline           string           `json:"outline" binding:"required"`
	StructuralOutline string           `json:"structural_outline,omitempty"`
	Strategy          string           `json:"strategy,omitempty"`
	Tier              int              `json:"tier,omitempty" binding:"omitempty,min=1,max=3"`
	References        model.References `json:"references"`
}

// ToModel 转换为流水线请求；策略名的合法性由流水线判定
func (r *GenerateInstallmentRequest) ToModel(seriesID string) *model.Request {
	return &model.Request{
		SeriesID:          seriesID,
		InstallmentNumber: r.InstallmentNumber,
		Title:             r.Title,
		Outline:           r.Outline,
		StructuralOutline: r.StructuralOutline,
		Strategy:          r.Strategy,
		Tier:              r.Tier,
		References:        r.References,
	}
}

// InstallmentResponse 分集存档响应
type InstallmentResponse struct {
	SeriesID   string                     `json:"series_id"`
	Number     int                        `json:"number"`
	Title      string                     `json:"title"`
	Content    string                     `json:"content"`
	CharCount  int                        `json:"char_count"`
	Warnings   []string                   `json:"warnings,omitempty"`
	Generation *entity.GenerationMetadata `json:"generation,omitempty"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// ToInstallmentResponse 将领域实体转换为响应 DTO
func ToInstallmentResponse(i *entity.Installment) *InstallmentResponse {
	if i == nil {
		return nil
	}
	return &InstallmentResponse{
		SeriesID:   i.SeriesID,
		Number:     i.Number,
		Title:      i.Title,
		Content:    i.Content,
		CharCount:  i.CharCount,
		Warnings:   []string(i.Warnings),
		Generation: i.GenerationMetadata,
		UpdatedAt:  i.UpdatedAt,
	}
}

// NormalizeRequest 规范化请求
type NormalizeRequest struct {
	Text string `json:"text" binding:"required"`
}

// NormalizeResponse 规范化响应
type NormalizeResponse struct {
	Text        string             `json:"text"`
	Corrections []model.Correction `json:"corrections"`
}

// QualityCheckRequest 质量检查请求
type QualityCheckRequest struct {
	Text              string `json:"text" binding:"required"`
	InstallmentNumber int    `json:"installment_number" binding:"required,gt=0"`
	Strategy          string `json:"strategy,omitempty" binding:"omitempty,oneof=single-pass chunked beat-directed"`
}

// QualityCheckResponse 质量检查响应
type QualityCheckResponse struct {
	CharCount   int                 `json:"char_count"`
	BannedTerms []string            `json:"banned_terms"`
	TooShort    bool                `json:"too_short"`
	Warnings    []string            `json:"warnings"`
	Report      model.QualityReport `json:"report"`
}
