package analyze

// deltaPrompt - 원본/수정본 쌍에서 재사용 가능한 편집 지시문을 뽑아내는 프롬프트
// 바뀐 것만 설명하고, 유지된 배경이나 인물 정체성은 언급하지 않게 함
const deltaPrompt = `You are given two images: the FIRST is the original, the SECOND is an edited version of it.

Describe ONLY the visual change that was applied, as a short imperative edit instruction that could be applied to a different but similar image.

Rules:
- Focus on ADDED elements, REMOVED elements, and STYLE changes (color grading, lighting, texture).
- Do NOT describe the unchanged background or scene layout.
- Do NOT describe the subject's identity, face, or body.
- Answer with the instruction only. No preamble, no explanation, maximum 3 sentences.`
