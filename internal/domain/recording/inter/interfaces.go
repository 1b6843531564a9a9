package inter

import (
	"context"

	"kouyu-server-go/internal/platform/config"
)

// CaptureSession 一次进行中的原生采集，由编排器独占持有
type CaptureSession interface {
	// Stop 结束采集并落盘，返回录音文件路径
	Stop(ctx context.Context) (string, error)
}

// CaptureDevice 原生采集设备
type CaptureDevice interface {
	// HasPermission 查询系统麦克风权限，从不报错
	HasPermission(ctx context.Context) bool
	// Start 按采集参数开始录音，输出写入path
	Start(ctx context.Context, path string, profile config.CaptureProfile) (CaptureSession, error)
}
