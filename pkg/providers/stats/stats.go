// Package stats 统计各后端的调用次数、失败与延迟
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

// ProviderStats 单个后端的统计
type ProviderStats struct {
	ProviderName       string           `json:"provider_name"`
	ModelName          string           `json:"model_name"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	TotalTexts         int64            `json:"total_texts"`
	TotalChars         int64            `json:"total_chars"`
	AlignmentFailures  int64            `json:"alignment_failures"`
	ErrorTypes         map[string]int64 `json:"error_types"`

	MinLatency   time.Duration `json:"min_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
	TotalLatency time.Duration `json:"total_latency"`

	FirstRequestTime time.Time `json:"first_request_time"`
	LastRequestTime  time.Time `json:"last_request_time"`
}

// AverageLatency 平均延迟
func (ps ProviderStats) AverageLatency() time.Duration {
	if ps.TotalRequests == 0 {
		return 0
	}
	return ps.TotalLatency / time.Duration(ps.TotalRequests)
}

// SuccessRate 成功率（百分比）
func (ps ProviderStats) SuccessRate() float64 {
	if ps.TotalRequests == 0 {
		return 0
	}
	return float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success   bool
	Latency   time.Duration
	Texts     int
	Chars     int
	ErrorType string
	Alignment bool // 条数不一致
}

// Manager 统计管理器
type Manager struct {
	mu     sync.Mutex
	stats  map[string]*ProviderStats // key: provider:model
	path   string
	logger *zap.Logger
}

// NewManager 创建统计管理器，path 为空时不落盘
func NewManager(path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		stats:  make(map[string]*ProviderStats),
		path:   path,
		logger: logger,
	}
}

func key(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}

// Record 记录请求结果
func (m *Manager) Record(provider, model string, result RequestResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(provider, model)
	ps, ok := m.stats[k]
	if !ok {
		ps = &ProviderStats{
			ProviderName: provider,
			ModelName:    model,
			ErrorTypes:   make(map[string]int64),
		}
		m.stats[k] = ps
	}

	now := time.Now()
	if ps.FirstRequestTime.IsZero() {
		ps.FirstRequestTime = now
	}
	ps.LastRequestTime = now

	ps.TotalRequests++
	ps.TotalTexts += int64(result.Texts)
	ps.TotalChars += int64(result.Chars)
	if result.Success {
		ps.SuccessfulRequests++
	} else {
		ps.FailedRequests++
		if result.ErrorType != "" {
			ps.ErrorTypes[result.ErrorType]++
		}
		if result.Alignment {
			ps.AlignmentFailures++
		}
	}

	ps.TotalLatency += result.Latency
	if ps.MinLatency == 0 || result.Latency < ps.MinLatency {
		ps.MinLatency = result.Latency
	}
	if result.Latency > ps.MaxLatency {
		ps.MaxLatency = result.Latency
	}
}

// Snapshot 按键排序返回统计副本
func (m *Manager) Snapshot() []ProviderStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.stats))
	for k := range m.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ProviderStats, 0, len(keys))
	for _, k := range keys {
		ps := *m.stats[k]
		ps.ErrorTypes = make(map[string]int64, len(m.stats[k].ErrorTypes))
		for t, n := range m.stats[k].ErrorTypes {
			ps.ErrorTypes[t] = n
		}
		out = append(out, ps)
	}
	return out
}

// Save 写入统计文件（先写临时文件再改名）
func (m *Manager) Save() error {
	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	m.logger.Debug("stats saved", zap.String("path", m.path))
	return nil
}

// Load 读取统计文件，文件不存在时从零开始
func (m *Manager) Load() error {
	if m.path == "" {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var loaded []ProviderStats
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range loaded {
		ps := loaded[i]
		if ps.ErrorTypes == nil {
			ps.ErrorTypes = make(map[string]int64)
		}
		m.stats[key(ps.ProviderName, ps.ModelName)] = &ps
	}

	m.logger.Debug("stats loaded",
		zap.String("path", m.path),
		zap.Int("providers", len(loaded)))
	return nil
}

// Render 以表格输出统计
func (m *Manager) Render(w io.Writer) {
	snapshot := m.Snapshot()
	if len(snapshot) == 0 {
		fmt.Fprintln(w, "No statistics available.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Provider Statistics")
	tw.AppendHeader(table.Row{"Provider", "Model", "Requests", "Success%", "Texts", "Alignment", "Avg", "Max"})
	for _, ps := range snapshot {
		tw.AppendRow(table.Row{
			ps.ProviderName,
			ps.ModelName,
			ps.TotalRequests,
			fmt.Sprintf("%.1f", ps.SuccessRate()),
			ps.TotalTexts,
			ps.AlignmentFailures,
			ps.AverageLatency().Round(time.Millisecond),
			ps.MaxLatency.Round(time.Millisecond),
		})
	}
	tw.Render()
}
