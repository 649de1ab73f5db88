package dto

// ================== Attach DTO ==================

// AttachReq multipart 表单字段，文件字段名为 file
type AttachReq struct {
	ProductID  string `form:"productId" binding:"required"`
	Mode       string `form:"mode" binding:"omitempty,oneof=media description"`
	Position   string `form:"position" binding:"omitempty,oneof=first last"`
	ReplaceAll bool   `form:"replaceAll"`
	Where      string `form:"where" binding:"omitempty,oneof=top bottom"`
	Alt        string `form:"alt" binding:"max=512"`
}

// EmbedDescriptionReq 已有图片地址直接写入描述
type EmbedDescriptionReq struct {
	ProductID string `json:"productId" binding:"required"`
	ImageURL  string `json:"imageUrl" binding:"required,url"`
	Where     string `json:"where" binding:"omitempty,oneof=top bottom"`
	Alt       string `json:"alt" binding:"max=512"`
}

// AttachResp 成功响应
type AttachResp struct {
	OK          bool   `json:"ok"`
	FileURL     string `json:"fileUrl"`
	FileID      string `json:"fileId,omitempty"`
	MediaID     int64  `json:"mediaId,omitempty"`
	Removed     int    `json:"removed,omitempty"`
	Description string `json:"description,omitempty"`
}

// ================== Billing DTO ==================

// BillingResp 订阅检查结果
type BillingResp struct {
	OK              bool   `json:"ok"`
	Active          bool   `json:"active"`
	ConfirmationURL string `json:"confirmationUrl,omitempty"`
}

// ================== Common ==================

// ErrorResp 失败响应，redirect 仅在需要重新授权时出现
type ErrorResp struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}
