package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"mockup_embedder_v1_202610/pkg/shopify"
)

// fakeShopify 记录调用顺序的远程 API 替身
type fakeShopify struct {
	mu    sync.Mutex
	calls []string

	targets      []shopify.StagedTarget
	uploadErr    error
	uploaded     []string
	files        []shopify.RemoteFile
	pollResults  []*shopify.RemoteFile // 依次返回，用完后重复最后一个
	images       []shopify.ProductImage
	deleteErrAt  int // 第几次删除失败 (从 1 开始)，0 表示不失败
	description  string
	updateErr    error
	updatedHTML  string
	createdSrc   string
	createdPos   int
	subs         []shopify.AppSubscription
	confirmURL   string
	createSubErr error
	plans        []shopify.SubscriptionPlan
	shopName     string

	// failAll 非空时所有平台调用都返回该错误
	failAll error
}

func (f *fakeShopify) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failAll
}

func (f *fakeShopify) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeShopify) StagedUploadsCreate(_ context.Context, _, _, _, _, _ string) ([]shopify.StagedTarget, error) {
	if err := f.record("staged"); err != nil {
		return nil, err
	}
	return f.targets, nil
}

func (f *fakeShopify) UploadStaged(_ context.Context, target shopify.StagedTarget, file shopify.UploadFile) error {
	_ = f.record("upload")
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, _ := io.ReadAll(file.Reader)
	f.uploaded = append(f.uploaded, string(b))
	return nil
}

func (f *fakeShopify) FileCreate(_ context.Context, _, _, _, _, _ string) ([]shopify.RemoteFile, error) {
	if err := f.record("fileCreate"); err != nil {
		return nil, err
	}
	return f.files, nil
}

func (f *fakeShopify) GetFile(_ context.Context, _, _, id string) (*shopify.RemoteFile, error) {
	if err := f.record("poll"); err != nil {
		return nil, err
	}
	n := f.count("poll")
	if len(f.pollResults) == 0 {
		return &shopify.RemoteFile{ID: id}, nil
	}
	if n > len(f.pollResults) {
		n = len(f.pollResults)
	}
	return f.pollResults[n-1], nil
}

func (f *fakeShopify) ListProductImages(_ context.Context, _, _, _ string) ([]shopify.ProductImage, error) {
	if err := f.record("listImages"); err != nil {
		return nil, err
	}
	return f.images, nil
}

func (f *fakeShopify) DeleteProductImage(_ context.Context, _, _, _ string, imageID int64) error {
	if err := f.record(fmt.Sprintf("delete:%d", imageID)); err != nil {
		return err
	}
	if f.deleteErrAt > 0 && f.count("delete:") == f.deleteErrAt {
		return &shopify.APIError{Kind: shopify.KindGeneric, Status: 500, Messages: []string{"boom"}}
	}
	return nil
}

func (f *fakeShopify) CreateProductImage(_ context.Context, _, _, _, src string, position int) (*shopify.ProductImage, error) {
	if err := f.record("createImage"); err != nil {
		return nil, err
	}
	f.createdSrc, f.createdPos = src, position
	return &shopify.ProductImage{ID: 555, Src: src, Position: position}, nil
}

func (f *fakeShopify) GetProductDescription(_ context.Context, _, _, _ string) (string, error) {
	if err := f.record("getDescription"); err != nil {
		return "", err
	}
	return f.description, nil
}

func (f *fakeShopify) UpdateProductDescription(_ context.Context, _, _, _, html string) error {
	if err := f.record("updateDescription"); err != nil {
		return err
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedHTML = html
	return nil
}

func (f *fakeShopify) ActiveSubscriptions(_ context.Context, _, _ string) ([]shopify.AppSubscription, error) {
	if err := f.record("subs"); err != nil {
		return nil, err
	}
	return f.subs, nil
}

func (f *fakeShopify) CreateSubscription(_ context.Context, _, _ string, plan shopify.SubscriptionPlan) (string, error) {
	if err := f.record("createSub"); err != nil {
		return "", err
	}
	f.plans = append(f.plans, plan)
	if f.createSubErr != nil {
		return "", f.createSubErr
	}
	return f.confirmURL, nil
}

func (f *fakeShopify) ShopName(_ context.Context, _, _ string) (string, error) {
	if err := f.record("shopName"); err != nil {
		return "", err
	}
	return f.shopName, nil
}

// fakeClock 立即触发并记录等待次数
type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func strPtr(s string) *string { return &s }

func readyImage(id, url string) shopify.RemoteFile {
	f := shopify.RemoteFile{ID: id, Typename: shopify.TypenameMediaImage, FileStatus: shopify.FileStatusReady}
	f.Image = &struct {
		URL *string `json:"url"`
	}{URL: strPtr(url)}
	return f
}

func pendingFile(id string) shopify.RemoteFile {
	return shopify.RemoteFile{ID: id, Typename: shopify.TypenameMediaImage, FileStatus: "UPLOADED"}
}

func defaultTargets() []shopify.StagedTarget {
	return []shopify.StagedTarget{{
		URL:         "https://storage.example/upload",
		ResourceURL: "https://storage.example/tmp/abc",
		Parameters: []shopify.StagedUploadKV{
			{Name: "policy", Value: "p1"},
			{Name: "signature", Value: "s1"},
		},
	}}
}
