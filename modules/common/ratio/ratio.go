package ratio

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile - 지원하는 화면 비율 프리셋
// APIValue는 Gemini/Imagen에 전달하는 "W:H" 문자열
type Profile struct {
	ID       string
	Label    string
	APIValue string
	Width    int // 표준 출력 크기
	Height   int
}

// 지원 프리셋 (시작 시 1회 생성, 이후 ID로만 참조)
var profiles = map[string]*Profile{
	"square":    {ID: "square", Label: "1:1 (Square)", APIValue: "1:1", Width: 1024, Height: 1024},
	"landscape": {ID: "landscape", Label: "16:9 (Wide)", APIValue: "16:9", Width: 1280, Height: 720},
	"portrait":  {ID: "portrait", Label: "9:16 (Tall)", APIValue: "9:16", Width: 720, Height: 1280},
	"standard":  {ID: "standard", Label: "4:3 (Standard)", APIValue: "4:3", Width: 1024, Height: 768},
}

// Lookup - ID로 프로필 조회
func Lookup(id string) (*Profile, error) {
	p, ok := profiles[id]
	if !ok {
		return nil, fmt.Errorf("unknown ratio id: %s", id)
	}
	return p, nil
}

// All - 등록된 모든 프로필 반환
func All() []*Profile {
	out := make([]*Profile, 0, len(profiles))
	for _, id := range []string{"square", "landscape", "portrait", "standard"} {
		out = append(out, profiles[id])
	}
	return out
}

// Ratio - W/H 비율 값
func (p *Profile) Ratio() float64 {
	w, h := p.split()
	return float64(w) / float64(h)
}

// split - APIValue "W:H" 파싱
func (p *Profile) split() (int, int) {
	parts := strings.SplitN(p.APIValue, ":", 2)
	w, _ := strconv.Atoi(parts[0])
	h, _ := strconv.Atoi(parts[1])
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	return w, h
}
