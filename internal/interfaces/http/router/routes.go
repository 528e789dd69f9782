package router

import (
	"github.com/gin-gonic/gin"

	"serial-novel-engine/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由；jobHandler、usageHandler 为 nil 时不注册对应接口
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	installmentHandler *handler.InstallmentHandler,
	jobHandler *handler.JobHandler,
	usageHandler *handler.UsageHandler,
) {
	series := v1.Group("/series/:sid")
	{
		series.POST("/installments/generate", installmentHandler.Generate)
		series.GET("/installments/:num", installmentHandler.Get)
		if jobHandler != nil {
			series.POST("/installments/generate-async", jobHandler.Submit)
		}
		if usageHandler != nil {
			series.GET("/usage", usageHandler.SeriesUsage)
		}
	}

	if jobHandler != nil {
		v1.GET("/jobs/:id", jobHandler.GetJob)
	}

	v1.POST("/normalize", installmentHandler.Normalize)
	v1.POST("/quality/check", installmentHandler.Check)
}
