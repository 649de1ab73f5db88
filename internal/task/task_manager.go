package task

import (
	"context"

	"go.uber.org/zap"
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	sweep *CredentialSweepTask
	log   *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Lister ShopLister
	Prober ShopProber
	Logger *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	SweepEnabled     bool
	SweepSpec        string
	SweepConcurrency int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		SweepEnabled:     true,
		SweepSpec:        "0 0 */6 * * *",
		SweepConcurrency: 5,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tm := &TaskManager{log: log.Named("task")}
	if cfg.SweepEnabled && deps.Lister != nil && deps.Prober != nil {
		tm.sweep = NewCredentialSweepTask(deps.Lister, deps.Prober, cfg.SweepSpec, cfg.SweepConcurrency, log)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.sweep != nil {
		if err := tm.sweep.Start(); err != nil {
			return err
		}
	}
	tm.log.Info("定时任务已全部启动", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.sweep != nil {
		tm.sweep.Stop()
	}
	tm.log.Info("定时任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerSweep 立即执行一轮凭证巡检
func (tm *TaskManager) TriggerSweep(ctx context.Context) (SweepReport, error) {
	if tm.sweep == nil {
		return SweepReport{}, ErrTaskDisabled
	}
	return tm.sweep.Run(ctx), nil
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"credential_sweep": tm.sweep != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
