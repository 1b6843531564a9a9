package portaudio

import (
	"context"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	pa "github.com/gordonklaus/portaudio"

	"kouyu-server-go/internal/domain/recording/inter"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/utils"
)

const (
	framesPerBuffer = 1024
	// maxCaptureSeconds 单次采集封顶时长，超出部分直接丢弃
	maxCaptureSeconds = 30
)

// CaptureDevice portaudio实现的麦克风采集设备
type CaptureDevice struct {
	logger *utils.Logger
}

// NewCaptureDevice 创建采集设备
func NewCaptureDevice(logger *utils.Logger) *CaptureDevice {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &CaptureDevice{logger: logger}
}

// HasPermission portaudio在桌面平台不暴露权限查询，
// 以能否打开默认输入流作为判据。
func (d *CaptureDevice) HasPermission(ctx context.Context) bool {
	// Initialize带引用计数，每次成功初始化都必须配对一次Terminate
	if err := pa.Initialize(); err != nil {
		return false
	}
	defer pa.Terminate()

	buffer := make([]float32, framesPerBuffer)
	stream, err := pa.OpenDefaultStream(1, 0, 16000, framesPerBuffer, &buffer)
	if err != nil {
		return false
	}
	stream.Close()
	return true
}

// Start 打开默认输入流并启动采集协程。此处的Initialize由会话的
// Stop配对Terminate，失败路径就地配对。
func (d *CaptureDevice) Start(ctx context.Context, path string, profile config.CaptureProfile) (inter.CaptureSession, error) {
	if err := pa.Initialize(); err != nil {
		return nil, err
	}

	maxSamples := profile.SampleRate * profile.Channels * maxCaptureSeconds
	s := &captureSession{
		logger:     d.logger,
		path:       path,
		profile:    profile,
		buffer:     make([]float32, framesPerBuffer),
		samples:    make([]float32, 0, framesPerBuffer*16),
		maxSamples: maxSamples,
		done:       make(chan struct{}),
	}

	stream, err := pa.OpenDefaultStream(
		profile.Channels, // input channels
		0,                // output channels
		float64(profile.SampleRate),
		framesPerBuffer,
		&s.buffer,
	)
	if err != nil {
		_ = pa.Terminate()
		return nil, err
	}
	s.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		_ = pa.Terminate()
		return nil, err
	}
	s.running = true

	go s.recordLoop()

	return s, nil
}

// captureSession 一次进行中的采集
type captureSession struct {
	logger     *utils.Logger
	path       string
	profile    config.CaptureProfile
	maxSamples int

	mu      sync.Mutex
	stream  *pa.Stream
	buffer  []float32
	samples []float32
	running bool
	done    chan struct{}
}

func (s *captureSession) recordLoop() {
	defer close(s.done)

	for {
		s.mu.Lock()
		running := s.running
		stream := s.stream
		s.mu.Unlock()
		if !running || stream == nil {
			return
		}

		if err := stream.Read(); err != nil {
			s.mu.Lock()
			running = s.running
			s.mu.Unlock()
			if !running {
				return
			}
			s.logger.WarnTag("RECORD", "读取输入流失败: %v", err)
			return
		}

		s.mu.Lock()
		s.samples = appendBounded(s.samples, s.buffer, s.maxSamples)
		s.mu.Unlock()
	}
}

// appendBounded 追加采样并封顶总量，未停止的采集不能无限占用内存。
// max<=0 表示不设上限。
func appendBounded(samples, chunk []float32, max int) []float32 {
	if max > 0 {
		if len(samples) >= max {
			return samples
		}
		if room := max - len(samples); room < len(chunk) {
			chunk = chunk[:room]
		}
	}
	return append(samples, chunk...)
}

// Stop 停止采集并把样本编码为WAV文件
func (s *captureSession) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return s.path, nil
	}
	s.running = false
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Stop()
		stream.Close()
	}

	// 与Start中的Initialize配对；必须等采集协程退出后才能Terminate
	select {
	case <-s.done:
		_ = pa.Terminate()
	case <-ctx.Done():
		go func() {
			<-s.done
			_ = pa.Terminate()
		}()
		return "", ctx.Err()
	}

	return s.path, s.flush()
}

// flush 把float32样本量化为16bit PCM并写WAV
func (s *captureSession) flush() error {
	s.mu.Lock()
	samples := s.samples
	s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, s.profile.SampleRate, 16, s.profile.Channels, 1)
	defer enc.Close()

	ints := make([]int, len(samples))
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		ints[i] = int(sample * 32767)
	}

	buf := &goaudio.IntBuffer{
		Data:           ints,
		Format:         &goaudio.Format{NumChannels: s.profile.Channels, SampleRate: s.profile.SampleRate},
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}
