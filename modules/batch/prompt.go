package batch

import "fmt"

// buildReferencePrompt - 레퍼런스(인덱스 0)에 적용하는 직접 편집 프롬프트
func buildReferencePrompt(userPrompt string) string {
	return fmt.Sprintf(`GENERAL QUALITY RULES:
1. **SHARPNESS**: High micro-contrast and edge definition.
2. **TEXTURE**: Realistic surface details (4K/8K style).
3. **PHOTOREALISM**: The result must look like a real photo (DSLR). No cartoons.

ROLE: Expert Photo Editor.
TASK: Perform the user's edit request on the image.
**PRESERVE**: The scene layout, the subject's identity, and everything not named in the request must stay exactly as in the input.

User's Request: %s`, userPrompt)
}

// buildFollowerPrompt - 하이브리드 앵커 프롬프트
// 첫 이미지(타깃)에서는 구도와 정체성을, 둘째 이미지(레퍼런스 결과)에서는
// 추가할 요소의 정확한 생김새만 가져오도록 역할을 분리함
func buildFollowerPrompt(instruction string) string {
	return fmt.Sprintf(`You are given TWO images.

IMAGE 1 (TARGET): the image to edit. PRESERVE its layout, background, and subject identity exactly. Do NOT copy anything from image 2's scene into the background.

IMAGE 2 (REFERENCE): a previously edited result. Use it ONLY as a visual lookup for the exact appearance (shape, color, material, placement style) of the change described below. Do NOT reproduce its background, subject, or composition.

EDIT INSTRUCTION: %s

Apply the instruction to IMAGE 1, matching the visual appearance of the change shown in IMAGE 2. Output a single edited version of IMAGE 1.`, instruction)
}
