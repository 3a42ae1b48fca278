package batch

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/gemini"
	"aigen-server/modules/common/model"
	"aigen-server/modules/history"
)

type genCall struct {
	prompt    string
	numImages int
}

type stubGen struct {
	mu       sync.Mutex
	calls    []genCall
	failCall int // 1-based; 0이면 실패 없음
}

func (s *stubGen) GenerateImage(ctx context.Context, prompt string, images []gemini.Image, aspectRatio string) (*gemini.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, genCall{prompt: prompt, numImages: len(images)})
	n := len(s.calls)
	if s.failCall == n {
		return nil, &gemini.APIError{Code: 500, Message: "stub failure"}
	}
	return &gemini.Result{Data: []byte(fmt.Sprintf("result-%d", n)), MIMEType: "image/png"}, nil
}

type stubAnalyzer struct {
	calls       int
	instruction string
}

func (s *stubAnalyzer) DescribeDelta(ctx context.Context, original []byte, edited []byte, editedMIME string) string {
	s.calls++
	return s.instruction
}

func tinyPNG(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func submitRun(t *testing.T, svc *Service, n int) *Run {
	t.Helper()
	images := make([]InputImage, n)
	for i := range images {
		images[i] = InputImage{Data: tinyPNG(t), MIMEType: "image/png"}
	}
	run, err := svc.Submit(context.Background(), &SubmitRequest{
		SessionID: "sess",
		Prompt:    "add a red scarf",
		RatioID:   "landscape",
		Images:    images,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return run
}

func TestBatchAllDoneReferenceFirst(t *testing.T) {
	gen := &stubGen{}
	analyzer := &stubAnalyzer{instruction: "add a knitted red scarf"}
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	run := submitRun(t, svc, 3)
	svc.Execute(context.Background(), run.RunID)

	status, err := svc.Status(run.RunID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.StatusDone {
		t.Fatalf("run status = %s, want done", status.Status)
	}
	for i, item := range status.Items {
		if item.Status != model.StatusDone {
			t.Fatalf("item %d status = %s (%s)", i, item.Status, item.Error)
		}
	}

	// 호출 순서: 레퍼런스(이미지 1장) -> 팔로워 2건(이미지 2장씩)
	if len(gen.calls) != 3 {
		t.Fatalf("generator calls = %d, want 3", len(gen.calls))
	}
	if gen.calls[0].numImages != 1 {
		t.Fatalf("reference call sent %d images, want 1", gen.calls[0].numImages)
	}
	for i := 1; i < 3; i++ {
		if gen.calls[i].numImages != 2 {
			t.Fatalf("follower call %d sent %d images, want 2 (target + reference)", i, gen.calls[i].numImages)
		}
		if !strings.Contains(gen.calls[i].prompt, "add a knitted red scarf") {
			t.Fatalf("follower prompt missing derived instruction:\n%s", gen.calls[i].prompt)
		}
	}
	if analyzer.calls != 1 {
		t.Fatalf("analyzer calls = %d, want 1", analyzer.calls)
	}
	if status.Instruction != "add a knitted red scarf" {
		t.Fatalf("instruction = %q", status.Instruction)
	}
}

func TestReferenceFailureSkipsFollowers(t *testing.T) {
	gen := &stubGen{failCall: 1}
	analyzer := &stubAnalyzer{instruction: "unused"}
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	run := submitRun(t, svc, 3)
	svc.Execute(context.Background(), run.RunID)

	status, _ := svc.Status(run.RunID)
	if status.Status != model.StatusError {
		t.Fatalf("run status = %s, want error", status.Status)
	}
	for i, item := range status.Items {
		if item.Status != model.StatusError {
			t.Fatalf("item %d status = %s, want error", i, item.Status)
		}
		if i > 0 && !strings.Contains(item.Error, "no reference") {
			t.Fatalf("item %d error = %q, want no-reference reason", i, item.Error)
		}
	}

	// 팔로워 호출도 분석 호출도 없어야 함
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want 1 (reference only)", len(gen.calls))
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer calls = %d, want 0", analyzer.calls)
	}
}

func TestAnalyzerFallbackUsesUserPrompt(t *testing.T) {
	gen := &stubGen{}
	analyzer := &stubAnalyzer{instruction: ""} // soft-fail
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	run := submitRun(t, svc, 2)
	svc.Execute(context.Background(), run.RunID)

	status, _ := svc.Status(run.RunID)
	if status.Instruction != "add a red scarf" {
		t.Fatalf("instruction = %q, want user prompt fallback", status.Instruction)
	}
	if !strings.Contains(gen.calls[1].prompt, "add a red scarf") {
		t.Fatalf("follower prompt missing fallback instruction:\n%s", gen.calls[1].prompt)
	}
}

func TestFollowerFailureIsolated(t *testing.T) {
	gen := &stubGen{failCall: 2} // 첫 팔로워만 실패
	analyzer := &stubAnalyzer{instruction: "instr"}
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	run := submitRun(t, svc, 3)
	svc.Execute(context.Background(), run.RunID)

	status, _ := svc.Status(run.RunID)
	if status.Items[1].Status != model.StatusError {
		t.Fatalf("item 1 status = %s, want error", status.Items[1].Status)
	}
	// 뒤 인덱스는 계속 처리됨
	if status.Items[2].Status != model.StatusDone {
		t.Fatalf("item 2 status = %s, want done", status.Items[2].Status)
	}
	if len(gen.calls) != 3 {
		t.Fatalf("generator calls = %d, want 3", len(gen.calls))
	}
}

func TestSupersededRunWritesDiscarded(t *testing.T) {
	gen := &stubGen{}
	analyzer := &stubAnalyzer{instruction: "instr"}
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	stale := submitRun(t, svc, 2)
	submitRun(t, svc, 2) // 같은 세션의 새 런이 활성 런을 교체

	svc.Execute(context.Background(), stale.RunID)

	status, _ := svc.Status(stale.RunID)
	if status.Status != model.StatusPending {
		t.Fatalf("stale run status = %s, want untouched pending", status.Status)
	}
	for i, item := range status.Items {
		if item.Status != model.StatusPending {
			t.Fatalf("stale item %d status = %s, want pending", i, item.Status)
		}
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator calls = %d, want 0 for stale run", len(gen.calls))
	}
}

func TestRegenerateReferenceLeavesFollowers(t *testing.T) {
	gen := &stubGen{}
	analyzer := &stubAnalyzer{instruction: "old instruction"}
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	run := submitRun(t, svc, 3)
	svc.Execute(context.Background(), run.RunID)

	before, _ := svc.Status(run.RunID)
	followerResult := before.Items[1].Result

	analyzer.instruction = "new instruction"
	if err := svc.RegenerateIndex(context.Background(), run.RunID, 0); err != nil {
		t.Fatalf("RegenerateIndex: %v", err)
	}

	after, _ := svc.Status(run.RunID)
	if after.Instruction != "new instruction" {
		t.Fatalf("instruction = %q, want recomputed", after.Instruction)
	}
	// 레퍼런스 재생성은 팔로워를 다시 실행하지 않음
	if after.Items[1].Result != followerResult {
		t.Fatal("follower result changed after reference regeneration")
	}
	if len(gen.calls) != 4 {
		t.Fatalf("generator calls = %d, want 4 (3 initial + 1 regen)", len(gen.calls))
	}
}

func TestRegenerateFollowerUsesStoredInstruction(t *testing.T) {
	gen := &stubGen{}
	analyzer := &stubAnalyzer{instruction: "stored instruction"}
	svc := NewService(gen, analyzer, compositor.New(1280), history.NewStore(), nil, nil)

	run := submitRun(t, svc, 2)
	svc.Execute(context.Background(), run.RunID)

	if err := svc.RegenerateIndex(context.Background(), run.RunID, 1); err != nil {
		t.Fatalf("RegenerateIndex: %v", err)
	}

	last := gen.calls[len(gen.calls)-1]
	if last.numImages != 2 || !strings.Contains(last.prompt, "stored instruction") {
		t.Fatalf("regen call = %+v", last)
	}
}
