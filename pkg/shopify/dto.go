package shopify

import (
	"strings"
)

// ==================== 通用 ====================

// UserError mutation 返回的业务校验错误
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// ProductGID 将数字 ID 规范为 GraphQL 全局 ID
func ProductGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Product/" + id
}

// NumericID 从全局 ID 中取出数字部分 (REST 接口使用)
func NumericID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// ==================== 暂存上传 ====================

// StagedTarget 平台下发的一次性上传目标
type StagedTarget struct {
	URL         string           `json:"url"`
	ResourceURL string           `json:"resourceUrl"`
	Parameters  []StagedUploadKV `json:"parameters"`
}

// StagedUploadKV 上传表单字段，顺序即平台给出的顺序
type StagedUploadKV struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type stagedUploadsCreateData struct {
	StagedUploadsCreate struct {
		StagedTargets []StagedTarget `json:"stagedTargets"`
		UserErrors    []UserError    `json:"userErrors"`
	} `json:"stagedUploadsCreate"`
}

// ==================== 文件 ====================

// 文件类型标记
const (
	TypenameMediaImage  = "MediaImage"
	TypenameGenericFile = "GenericFile"
)

// 文件处理状态
const (
	FileStatusReady  = "READY"
	FileStatusFailed = "FAILED"
)

// RemoteFile 平台文件对象 (MediaImage 或 GenericFile)
type RemoteFile struct {
	ID         string `json:"id"`
	Typename   string `json:"__typename"`
	FileStatus string `json:"fileStatus"`
	// GenericFile 的地址
	URL *string `json:"url"`
	// MediaImage 的地址
	Image *struct {
		URL *string `json:"url"`
	} `json:"image"`
}

// ContentURL 取出已就绪的内容地址，未就绪返回空串
func (f *RemoteFile) ContentURL() string {
	if f == nil {
		return ""
	}
	if f.Image != nil && f.Image.URL != nil {
		return *f.Image.URL
	}
	if f.URL != nil {
		return *f.URL
	}
	return ""
}

type fileCreateData struct {
	FileCreate struct {
		Files      []RemoteFile `json:"files"`
		UserErrors []UserError  `json:"userErrors"`
	} `json:"fileCreate"`
}

type nodeData struct {
	Node *RemoteFile `json:"node"`
}

// ==================== 商品 ====================

// ProductImage REST 商品图片
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Position  int    `json:"position"`
	Src       string `json:"src"`
	Alt       string `json:"alt,omitempty"`
}

// ProductImagesResponse GET products/{id}/images.json
type ProductImagesResponse struct {
	Images []ProductImage `json:"images"`
}

// ProductImageResponse POST products/{id}/images.json
type ProductImageResponse struct {
	Image ProductImage `json:"image"`
}

type productDescriptionData struct {
	Product *struct {
		ID              string `json:"id"`
		DescriptionHTML string `json:"descriptionHtml"`
	} `json:"product"`
}

type productUpdateData struct {
	ProductUpdate struct {
		Product *struct {
			ID              string `json:"id"`
			DescriptionHTML string `json:"descriptionHtml"`
		} `json:"product"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"productUpdate"`
}

// ==================== 订阅 ====================

// AppSubscription 当前安装上的订阅
type AppSubscription struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type activeSubscriptionsData struct {
	AppInstallation struct {
		ActiveSubscriptions []AppSubscription `json:"activeSubscriptions"`
	} `json:"currentAppInstallation"`
}

type subscriptionCreateData struct {
	AppSubscriptionCreate struct {
		ConfirmationURL string           `json:"confirmationUrl"`
		AppSubscription *AppSubscription `json:"appSubscription"`
		UserErrors      []UserError      `json:"userErrors"`
	} `json:"appSubscriptionCreate"`
}

// SubscriptionPlan 订阅创建参数
type SubscriptionPlan struct {
	Name         string
	Price        float64
	CurrencyCode string
	Interval     string
	TrialDays    int
	Test         bool
	ReturnURL    string
}

// ==================== OAuth ====================

// AccessTokenResponse 授权码换取的离线令牌
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
