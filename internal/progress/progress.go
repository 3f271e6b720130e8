// Package progress 在终端上渲染翻译进度条
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

// Summary 一次运行的进度汇总
type Summary struct {
	RunID         string
	Batches       int
	Units         int
	DoneBatches   int
	FailedBatches int
	DoneUnits     int
	StartTime     time.Time
	EndTime       time.Time
	Err           error
}

// Elapsed 运行耗时
func (s Summary) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime)
}

// Reporter 用 go-pretty 渲染批次与文本单元两条进度条
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	freq    time.Duration
	pw      progress.Writer
	batches *progress.Tracker
	units   *progress.Tracker
	summary Summary
	done    chan struct{}
}

var _ translation.Reporter = (*Reporter)(nil)

// New 创建进度报告器，out 为 nil 时输出到 stderr
func New(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stderr
	}
	return &Reporter{out: out, freq: 100 * time.Millisecond}
}

// RunStarted 创建进度条并开始渲染
func (r *Reporter) RunStarted(runID string, batches, units int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary = Summary{RunID: runID, Batches: batches, Units: units, StartTime: time.Now()}

	pw := progress.NewWriter()
	pw.SetOutputWriter(r.out)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.SetUpdateFrequency(r.freq)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(40)
	pw.SetMessageLength(24)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true
	pw.Style().Visibility.TrackerOverall = false

	r.batches = &progress.Tracker{
		Message: fmt.Sprintf("batches [%s]", shortID(runID)),
		Total:   int64(batches),
		Units:   progress.UnitsDefault,
	}
	r.units = &progress.Tracker{
		Message: "text units",
		Total:   int64(units),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(r.batches)
	pw.AppendTracker(r.units)
	r.pw = pw

	r.done = make(chan struct{})
	go func(done chan struct{}) {
		pw.Render()
		close(done)
	}(r.done)
	waitRendering(pw, time.Second)
}

// BatchDone 推进进度，失败的批次不计入已完成的文本单元
func (r *Reporter) BatchDone(b translation.Batch, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.DoneBatches++
	if err != nil {
		r.summary.FailedBatches++
	} else {
		r.summary.DoneUnits += b.Len()
	}

	if r.batches == nil {
		return
	}
	r.batches.Increment(1)
	if err != nil {
		r.batches.UpdateMessage(fmt.Sprintf("batches (%d failed)", r.summary.FailedBatches))
		return
	}
	r.units.Increment(int64(b.Len()))
}

// RunFinished 结束进度条并等待最后一次渲染完成
func (r *Reporter) RunFinished(err error) {
	r.mu.Lock()
	r.summary.EndTime = time.Now()
	r.summary.Err = err
	pw, done := r.pw, r.done
	if r.batches != nil {
		if err != nil {
			r.batches.MarkAsErrored()
			r.units.MarkAsErrored()
		} else {
			r.batches.MarkAsDone()
			r.units.MarkAsDone()
		}
	}
	r.pw, r.batches, r.units, r.done = nil, nil, nil, nil
	r.mu.Unlock()

	if pw == nil {
		return
	}
	// 让渲染协程至少刷新一次最终状态
	time.Sleep(r.freq)
	pw.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

// waitRendering 等待 Render 协程进入渲染循环，否则 Stop 不会生效
func waitRendering(pw progress.Writer, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for !pw.IsRenderInProgress() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

// Summary 返回当前汇总的副本
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
