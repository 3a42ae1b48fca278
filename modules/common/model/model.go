package model

// TaskType - 생성 요청의 작업 종류
// 작업 종류에 따라 합성 배경 정책과 프롬프트 템플릿이 결정됨
type TaskType string

const (
	TaskCreation       TaskType = "creation"
	TaskEdit           TaskType = "edit"
	TaskSketch         TaskType = "sketch"
	TaskFace           TaskType = "face"
	TaskBatchReference TaskType = "batch_reference"
	TaskBatchExecute   TaskType = "batch_execute"
)

// IsBatch - 배치 계열 작업 여부
func (t TaskType) IsBatch() bool {
	return t == TaskBatchReference || t == TaskBatchExecute
}

// Valid - 알려진 작업 종류인지 확인
func (t TaskType) Valid() bool {
	switch t {
	case TaskCreation, TaskEdit, TaskSketch, TaskFace, TaskBatchReference, TaskBatchExecute:
		return true
	}
	return false
}

// Job/Item 상태 상수
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)
