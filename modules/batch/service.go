package batch

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/gemini"
	"aigen-server/modules/common/model"
	"aigen-server/modules/common/ratio"
	"aigen-server/modules/history"
)

const (
	// QueueKey - 제출된 런이 대기하는 큐
	QueueKey = "batch:queue"
	// RegenQueueKey - 단일 인덱스 재생성 요청 큐
	RegenQueueKey = "batch:regen"

	supersededKeyPrefix = "batch:superseded:"
	supersededTTL       = time.Hour
)

// ImageGenerator - 이미지 생성 클라이언트 (테스트에서 스텁으로 대체)
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, images []gemini.Image, aspectRatio string) (*gemini.Result, error)
}

// DeltaAnalyzer - 레퍼런스 편집에서 지시문을 추출 (실패 시 빈 문자열)
type DeltaAnalyzer interface {
	DescribeDelta(ctx context.Context, original []byte, edited []byte, editedMIME string) string
}

// Notifier - 런 상태 변경을 구독자에게 전파 (WebSocket 허브)
type Notifier interface {
	PublishRunStatus(sessionID string, run *Run)
}

type Service struct {
	mu        sync.Mutex
	runs      map[string]*Run
	activeRun map[string]string // sessionID -> 현재 활성 runID
	seq       map[string]int64  // sessionID -> 단조 증가 시퀀스

	generator ImageGenerator
	analyzer  DeltaAnalyzer
	comp      *compositor.Compositor
	history   *history.Store
	rdb       *redis.Client // nil이면 큐/superseded 플래그 비활성 (테스트)
	notifier  Notifier      // nil 허용
}

func NewService(generator ImageGenerator, analyzer DeltaAnalyzer, comp *compositor.Compositor, hist *history.Store, rdb *redis.Client, notifier Notifier) *Service {
	return &Service{
		runs:      make(map[string]*Run),
		activeRun: make(map[string]string),
		seq:       make(map[string]int64),
		generator: generator,
		analyzer:  analyzer,
		comp:      comp,
		history:   hist,
		rdb:       rdb,
		notifier:  notifier,
	}
}

// Submit - 배치 런 생성 및 큐 등록
// 같은 세션의 이전 활성 런은 superseded로 표시되어 이후의 상태 커밋이 버려짐
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*Run, error) {
	if len(req.Images) < 2 {
		return nil, fmt.Errorf("batch requires at least 2 images (reference + followers)")
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if req.RatioID != "" {
		if _, err := ratio.Lookup(req.RatioID); err != nil {
			return nil, err
		}
	}

	sources := make([][]byte, len(req.Images))
	for i, in := range req.Images {
		raw, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: image #%d is not valid base64", compositor.ErrDecode, i+1)
		}
		sources[i] = raw
	}

	items := make([]Item, len(sources))
	for i := range items {
		items[i] = Item{Index: i, Status: model.StatusPending}
	}

	run := &Run{
		RunID:     uuid.New().String(),
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		RatioID:   req.RatioID,
		Status:    model.StatusPending,
		Items:     items,
		CreatedAt: time.Now(),
		sources:   sources,
	}

	s.mu.Lock()
	s.seq[req.SessionID]++
	run.Seq = s.seq[req.SessionID]
	previous := s.activeRun[req.SessionID]
	s.activeRun[req.SessionID] = run.RunID
	s.runs[run.RunID] = run
	s.mu.Unlock()

	// 이전 런의 뒤늦은 커밋이 끼어들지 못하게 플래그를 남김
	if previous != "" && s.rdb != nil {
		if err := s.rdb.Set(ctx, supersededKeyPrefix+previous, "1", supersededTTL).Err(); err != nil {
			log.Printf("⚠️  Failed to flag superseded run %s: %v", previous, err)
		}
	}

	if s.rdb != nil {
		if err := s.rdb.LPush(ctx, QueueKey, run.RunID).Err(); err != nil {
			return nil, fmt.Errorf("failed to enqueue batch run: %w", err)
		}
	}

	log.Printf("📦 Batch run submitted: %s (%d images, seq %d)", run.RunID, len(sources), run.Seq)
	return run, nil
}

// Status - 런 스냅샷 조회
func (s *Service) Status(runID string) (*Run, error) {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return run.Snapshot(), nil
}

// Execute - 배치 상태 머신 실행 (워커에서 호출)
// 1. 인덱스 0 직접 편집 -> 2. 차이 분석 -> 3. 팔로워 순차 처리
func (s *Service) Execute(ctx context.Context, runID string) {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		log.Printf("❌ Unknown batch run: %s", runID)
		return
	}

	profile := s.profileFor(run)
	aspect := ""
	if profile != nil {
		aspect = profile.APIValue
	}

	log.Printf("🚀 Executing batch run %s (%d items)", run.RunID, len(run.sources))

	if !s.commit(ctx, run, func() {
		run.Status = model.StatusProcessing
		run.Items[0].Status = model.StatusProcessing
	}) {
		return
	}

	// 1단계: 레퍼런스 직접 편집
	refResult, err := s.editReference(ctx, run, profile, aspect)
	if err != nil {
		log.Printf("❌ Reference edit failed for run %s: %v", run.RunID, err)
		s.commit(ctx, run, func() {
			run.Items[0].Status = model.StatusError
			run.Items[0].Error = err.Error()
			// 팔로워는 레퍼런스 없이는 실행할 수 없으므로 디스패치하지 않음
			for i := 1; i < len(run.Items); i++ {
				run.Items[i].Status = model.StatusError
				run.Items[i].Error = "reference edit failed: no reference available"
			}
			run.Status = model.StatusError
		})
		return
	}

	if !s.commit(ctx, run, func() {
		run.Items[0].Status = model.StatusDone
		run.Items[0].Result = base64.StdEncoding.EncodeToString(refResult.Data)
		run.Items[0].MIMEType = refResult.MIMEType
		run.referenceData = refResult.Data
		run.referenceMIME = refResult.MIMEType
	}) {
		return
	}

	// 2단계: 지시문 도출 (실패 시 사용자 프롬프트로 폴백)
	instruction := s.analyzer.DescribeDelta(ctx, run.sources[0], refResult.Data, refResult.MIMEType)
	if instruction == "" {
		log.Printf("⚠️  Falling back to user prompt as batch instruction (run %s)", run.RunID)
		instruction = run.Prompt
	}
	if !s.commit(ctx, run, func() { run.Instruction = instruction }) {
		return
	}

	// 3단계: 팔로워 순차 처리. 개별 실패는 해당 슬롯에만 기록
	for i := 1; i < len(run.sources); i++ {
		if !s.commit(ctx, run, func() { run.Items[i].Status = model.StatusProcessing }) {
			return
		}
		s.executeFollower(ctx, run, i, instruction, profile, aspect)
	}

	if s.commit(ctx, run, func() { run.Status = model.StatusDone }) {
		s.appendFolderHistory(run)
		log.Printf("✅ Batch run completed: %s", run.RunID)
	}
}

// RegenerateIndex - 단일 인덱스 재실행
// 인덱스 0 재생성은 레퍼런스와 지시문만 갱신하고 팔로워는 건드리지 않음
func (s *Service) RegenerateIndex(ctx context.Context, runID string, index int) error {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	if index < 0 || index >= len(run.sources) {
		return fmt.Errorf("index out of range: %d", index)
	}

	profile := s.profileFor(run)
	aspect := ""
	if profile != nil {
		aspect = profile.APIValue
	}

	log.Printf("🔄 Regenerating index %d of run %s", index, run.RunID)

	if !s.commit(ctx, run, func() {
		run.Items[index].Status = model.StatusProcessing
		run.Items[index].Error = ""
	}) {
		return nil
	}

	if index == 0 {
		refResult, err := s.editReference(ctx, run, profile, aspect)
		if err != nil {
			s.commit(ctx, run, func() {
				run.Items[0].Status = model.StatusError
				run.Items[0].Error = err.Error()
			})
			return nil
		}
		if !s.commit(ctx, run, func() {
			run.Items[0].Status = model.StatusDone
			run.Items[0].Result = base64.StdEncoding.EncodeToString(refResult.Data)
			run.Items[0].MIMEType = refResult.MIMEType
			run.referenceData = refResult.Data
			run.referenceMIME = refResult.MIMEType
		}) {
			return nil
		}
		instruction := s.analyzer.DescribeDelta(ctx, run.sources[0], refResult.Data, refResult.MIMEType)
		if instruction == "" {
			instruction = run.Prompt
		}
		s.commit(ctx, run, func() { run.Instruction = instruction })
		return nil
	}

	run.mu.Lock()
	hasReference := run.referenceData != nil
	instruction := run.Instruction
	run.mu.Unlock()
	if !hasReference {
		s.commit(ctx, run, func() {
			run.Items[index].Status = model.StatusError
			run.Items[index].Error = "reference edit failed: no reference available"
		})
		return nil
	}

	s.executeFollower(ctx, run, index, instruction, profile, aspect)
	return nil
}

// editReference - 인덱스 0 stretch 합성 후 직접 편집 호출
func (s *Service) editReference(ctx context.Context, run *Run, profile *ratio.Profile, aspect string) (*gemini.Result, error) {
	payload, err := s.comp.Compose(run.sources[0], profile, model.TaskBatchReference)
	if err != nil {
		return nil, err
	}
	return s.generator.GenerateImage(ctx, buildReferencePrompt(run.Prompt),
		[]gemini.Image{{Data: payload.Data, MIMEType: payload.MIMEType}}, aspect)
}

// executeFollower - 하이브리드 앵커 호출: 타깃 + 레퍼런스 결과 + 지시문
func (s *Service) executeFollower(ctx context.Context, run *Run, index int, instruction string, profile *ratio.Profile, aspect string) {
	payload, err := s.comp.Compose(run.sources[index], profile, model.TaskBatchExecute)

	var result *gemini.Result
	if err == nil {
		run.mu.Lock()
		refImage := gemini.Image{Data: run.referenceData, MIMEType: run.referenceMIME}
		run.mu.Unlock()

		result, err = s.generator.GenerateImage(ctx, buildFollowerPrompt(instruction),
			[]gemini.Image{
				{Data: payload.Data, MIMEType: payload.MIMEType},
				refImage,
			}, aspect)
	}

	if err != nil {
		log.Printf("❌ Batch item %d failed (run %s): %v", index, run.RunID, err)
		s.commit(ctx, run, func() {
			run.Items[index].Status = model.StatusError
			run.Items[index].Error = err.Error()
		})
		return
	}

	s.commit(ctx, run, func() {
		run.Items[index].Status = model.StatusDone
		run.Items[index].Result = base64.StdEncoding.EncodeToString(result.Data)
		run.Items[index].MIMEType = result.MIMEType
	})
}

// commit - 상태 변경 반영. 런이 더 이상 세션의 활성 런이 아니면 버림
func (s *Service) commit(ctx context.Context, run *Run, mutate func()) bool {
	if s.isStale(ctx, run) {
		log.Printf("🚫 Discarding stale update for run %s (superseded)", run.RunID)
		return false
	}

	run.mu.Lock()
	mutate()
	run.mu.Unlock()

	if s.notifier != nil {
		s.notifier.PublishRunStatus(run.SessionID, run.Snapshot())
	}
	return true
}

// isStale - 런이 교체되었는지 확인 (메모리 활성 런 + redis 플래그)
func (s *Service) isStale(ctx context.Context, run *Run) bool {
	s.mu.Lock()
	active := s.activeRun[run.SessionID] == run.RunID
	s.mu.Unlock()
	if !active {
		return true
	}
	if s.rdb != nil {
		if v, err := s.rdb.Get(ctx, supersededKeyPrefix+run.RunID).Result(); err == nil && v == "1" {
			return true
		}
	}
	return false
}

func (s *Service) profileFor(run *Run) *ratio.Profile {
	if run.RatioID == "" {
		return nil
	}
	p, err := ratio.Lookup(run.RatioID)
	if err != nil {
		return nil
	}
	return p
}

// appendFolderHistory - 완료된 런의 성공 결과를 폴더 항목으로 히스토리에 추가
func (s *Service) appendFolderHistory(run *Run) {
	if s.history == nil {
		return
	}

	run.mu.Lock()
	images := make([]history.Image, 0, len(run.Items))
	for _, item := range run.Items {
		if item.Status == model.StatusDone && item.Result != "" {
			images = append(images, history.Image{Data: item.Result, MIMEType: item.MIMEType})
		}
	}
	run.mu.Unlock()

	if len(images) == 0 {
		return
	}
	s.history.Append(run.SessionID, "batch", &history.Entry{
		Folder: true,
		RunID:  run.RunID,
		Prompt: run.Prompt,
		Images: images,
	})
}
