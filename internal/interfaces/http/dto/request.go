package dto

// SeriesIDRequest 系列路径参数
type SeriesIDRequest struct {
	SeriesID string `uri:"sid" binding:"required,max=64"`
}

// InstallmentURIRequest 分集路径参数
type InstallmentURIRequest struct {
	SeriesID string `uri:"sid" binding:"required,max=64"`
	Number   int    `uri:"num" binding:"required,gt=0"`
}

// JobIDRequest 任务 ID 请求
type JobIDRequest struct {
	JobID string `uri:"id" binding:"required"`
}

// UsageQuery 用量查询参数
type UsageQuery struct {
	Since string `form:"since" binding:"omitempty"`
}
