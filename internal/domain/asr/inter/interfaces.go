package inter

import "context"

// Request 一次完整语音片段的识别请求
type Request struct {
	// 原始音频字节，适配器负责base64编码
	Audio           []byte
	Encoding        string
	SampleRateHertz int
	LanguageCode    string
	// 期望短语作为识别提示，提高目标词的命中率
	BoostPhrases []string
	Boost        float64
}

// Result 识别结果。Transcript为空表示未检测到语音。
type Result struct {
	Transcript string
	// 识别置信度 [0,1]
	Confidence float64
}

// Recognizer 远端语音识别服务
type Recognizer interface {
	Recognize(ctx context.Context, req Request) (*Result, error)
}
