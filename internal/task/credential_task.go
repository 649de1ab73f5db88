package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"mockup_embedder_v1_202610/internal/model"
)

// ShopLister 列出已安装店铺
type ShopLister interface {
	ListInstalled(ctx context.Context) ([]model.Shop, error)
}

// ShopProber 探测单个店铺凭证
type ShopProber interface {
	Probe(ctx context.Context, shop string) (revoked bool, err error)
}

// SweepReport 单轮巡检结果
type SweepReport struct {
	Checked int64
	Revoked int64
	Failed  int64
}

// CredentialSweepTask 定时巡检所有店铺凭证，授权失败的凭证会被吊销
type CredentialSweepTask struct {
	lister ShopLister
	prober ShopProber
	cron   *cron.Cron
	spec   string
	log    *zap.Logger

	// 控制并发探测的数量
	concurrency int
	jobTimeout  time.Duration
}

// NewCredentialSweepTask spec 为 6 段 cron 表达式 (含秒)
func NewCredentialSweepTask(lister ShopLister, prober ShopProber, spec string, concurrency int, log *zap.Logger) *CredentialSweepTask {
	if concurrency <= 0 {
		concurrency = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialSweepTask{
		lister:      lister,
		prober:      prober,
		cron:        cron.New(cron.WithSeconds()),
		spec:        spec,
		log:         log.Named("sweep"),
		concurrency: concurrency,
		jobTimeout:  10 * time.Minute,
	}
}

// Start 注册并启动定时任务
func (t *CredentialSweepTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.jobTimeout)
		defer cancel()
		t.Run(ctx)
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	t.log.Info("凭证巡检任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (t *CredentialSweepTask) Stop() {
	<-t.cron.Stop().Done()
}

// Run 执行一轮巡检
func (t *CredentialSweepTask) Run(ctx context.Context) SweepReport {
	var report SweepReport

	shops, err := t.lister.ListInstalled(ctx)
	if err != nil {
		t.log.Error("查询已安装店铺失败", zap.Error(err))
		return report
	}

	// 1. 信号量控制并发
	sem := make(chan struct{}, t.concurrency)
	var wg sync.WaitGroup

	for _, shop := range shops {
		select {
		case <-ctx.Done():
			t.log.Warn("巡检超时停止")
			wg.Wait()
			return report
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			defer func() { <-sem }()

			atomic.AddInt64(&report.Checked, 1)
			revoked, err := t.prober.Probe(ctx, domain)
			switch {
			case err != nil:
				atomic.AddInt64(&report.Failed, 1)
				// 非授权类错误只记录，不中断其他店铺
				t.log.Warn("凭证巡检失败", zap.String("shop", domain), zap.Error(err))
			case revoked:
				atomic.AddInt64(&report.Revoked, 1)
			}
		}(shop.ShopDomain)
	}

	// 2. 等待全部完成
	wg.Wait()
	t.log.Info("本轮凭证巡检完成",
		zap.Int64("checked", report.Checked),
		zap.Int64("revoked", report.Revoked),
		zap.Int64("failed", report.Failed),
	)
	return report
}
