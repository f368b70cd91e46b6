package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/publish"
)

// safePublisher is a concurrency-safe publish recorder for batch runs.
type safePublisher struct {
	mu        sync.Mutex
	published []patient.Record
}

func (s *safePublisher) CreateOrUpdate(_ context.Context, rec patient.Record) (publish.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, rec)
	return publish.Result{Action: "created", ID: rec.ExternalPatientID}, nil
}

func (s *safePublisher) DemoMode() bool { return false }

func (s *safePublisher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func TestSplitRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"two blocks", "姓名: 张三\n病历号: HIS1\n\n姓名: 李四\n病历号: HIS2", 2},
		{"blank lines with spaces", "a\n  \nb", 2},
		{"single block", "姓名: 张三\n病历号: HIS1", 1},
		{"empty", "", 0},
		{"only whitespace", "  \n\n  ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, SplitRecords(tt.raw), tt.want)
		})
	}
}

func TestRunBatch_AllSucceed(t *testing.T) {
	text := "姓名: 张三\n性别: 男\n出生日期: 1970年01月15日\n病历号: HIS000001\n\n" +
		"姓名: 李四\n性别: 女\n出生日期: 1985年03月20日\n病历号: HIS000002\n\n" +
		"姓名: 王五\n性别: 男\n出生日期: 1992年11月02日\n病历号: HIS000003"

	rec := &fakeRecognizer{text: text}
	pub := &safePublisher{}
	cfg := DefaultConfig()
	cfg.BatchWorkers = 2

	capt := &fakeCapture{}
	pl, err := NewBuilder().WithConfig(cfg).
		WithCapture(capt).WithRecognizer(rec).WithPublisher(pub).Build()
	require.NoError(t, err)

	batch, err := pl.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, batch.Failed)
	require.Len(t, batch.Results, 3)

	// One capture and one recognition pass shared by all records.
	assert.EqualValues(t, 1, capt.calls.Load())
	assert.EqualValues(t, 1, rec.calls.Load())
	assert.Equal(t, 3, pub.count())

	// Screen order is preserved.
	assert.Equal(t, "HIS000001", batch.Results[0].Record.ExternalPatientID)
	assert.Equal(t, "HIS000002", batch.Results[1].Record.ExternalPatientID)
	assert.Equal(t, "HIS000003", batch.Results[2].Record.ExternalPatientID)
	assert.Equal(t, "1985-03-20", batch.Results[1].Record.BirthDate)
}

func TestRunBatch_PartialFailure(t *testing.T) {
	// The middle block has no gender, date or ID and fails validation; the
	// other two still publish.
	text := "姓名: 张三\n性别: 男\n出生日期: 1970年01月15日\n病历号: HIS000001\n\n" +
		"姓名: 残缺\n\n" +
		"姓名: 王五\n性别: 男\n出生日期: 1992年11月02日\n病历号: HIS000003"

	rec := &fakeRecognizer{text: text}
	pub := &safePublisher{}

	pl, err := NewBuilder().WithConfig(DefaultConfig()).
		WithCapture(&fakeCapture{}).WithRecognizer(rec).WithPublisher(pub).Build()
	require.NoError(t, err)

	batch, err := pl.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 2, pub.count())

	assert.Equal(t, StateSucceeded, batch.Results[0].State)
	assert.Equal(t, StateFailed, batch.Results[1].State)
	assert.Equal(t, StateValidating, batch.Results[1].FailedStage)
	assert.Equal(t, StateSucceeded, batch.Results[2].State)
}

func TestRunBatch_EmptyScreen(t *testing.T) {
	rec := &fakeRecognizer{text: "   "}
	pl, err := NewBuilder().WithConfig(DefaultConfig()).
		WithCapture(&fakeCapture{}).WithRecognizer(rec).WithPublisher(&safePublisher{}).Build()
	require.NoError(t, err)

	_, err = pl.RunBatch(context.Background())
	assert.Error(t, err)
}
