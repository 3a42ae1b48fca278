package generate

import (
	"fmt"

	"aigen-server/modules/common/model"
	"aigen-server/modules/common/ratio"
)

// buildRatioInstruction - 작업 종류별 캔버스/비율 지시문
// sketch와 face는 3단계 워크플로우로 캔버스 전체를 새로 그리도록 강제함
func buildRatioInstruction(task model.TaskType, profile *ratio.Profile, userPrompt string) string {
	if profile == nil {
		return "**ASPECT RATIO**: Maintain input aspect ratio."
	}

	switch task {
	case model.TaskSketch:
		return fmt.Sprintf(`**STRICT WORKFLOW (Follow in order)**:

1. **STEP 1: SCENE VISUALIZATION (Mental Canvas)**
   - Visualize a COMPLETELY NEW PHOTOREALISTIC SCENE that fits the entire canvas aspect ratio (%s).
   - The scene is defined by the User's Prompt: "%s".
   - IGNORE the white background of the input. Treat the canvas as a full rectangular frame waiting to be filled.

2. **STEP 2: STRUCTURE ANALYSIS (Input Decoding)**
   - Analyze the sketch strokes in the center.
   - EXTRACT: Geometry, shapes, and composition from the drawing.
   - INTERPRET: Convert primitive lines into real-world object boundaries (e.g., circle -> sun/ball, rectangle -> building).

3. **STEP 3: EXECUTION (Render & Synthesis)**
   - RENDER the full scene visualized in Step 1.
   - MATERIALIZE the objects based on the Step 2 structure using photorealistic textures (glass, metal, skin, nature).
   - **CRITICAL**: The final image must fill 100%% of the canvas. NO white borders. NO remaining pencil strokes.`,
			profile.Label, userPrompt)

	case model.TaskFace:
		return fmt.Sprintf(`**STRICT WORKFLOW (Follow in order)**:

1. **STEP 1: SCENE CREATION (Mental Visualization)**
   - First, visualize a COMPLETELY NEW IMAGE that fits the entire canvas aspect ratio (%s).
   - This scene is based ONLY on the User's Prompt text: "%s".
   - IGNORE the white background and the pasted look of the input image. Treat the canvas as blank for this step.

2. **STEP 2: FEATURE EXTRACTION (Input Analysis)**
   - Now, look at the small center image provided.
   - EXTRACT: Facial Features (Eyes, Nose, Mouth).
   - EXTRACT: Body Physique/Build (Skinny, Fat, Muscular, etc.). If it's a headshot, assume a build that fits the face.

3. **STEP 3: EXECUTION (Edit & Merge)**
   - RENDER the scene visualized in Step 1.
   - INSERT the character with the EXTRACTED FEATURES from Step 2 into this scene.
   - **CRITICAL**: The final image must fill 100%% of the canvas. NO white borders. NO original background remnants.`,
			profile.Label, userPrompt)

	default:
		return "**ACTION**: Outpaint/Extend the scene into the blurred areas."
	}
}

// buildSystemContext - 작업 종류별 시스템 컨텍스트
func buildSystemContext(task model.TaskType, profile *ratio.Profile, userPrompt string) string {
	common := fmt.Sprintf(`GENERAL QUALITY RULES:
1. **SHARPNESS**: High micro-contrast and edge definition.
2. **TEXTURE**: Realistic surface details (4K/8K style).
3. **PHOTOREALISM**: The result must look like a real photo (DSLR). No cartoons.
%s`, buildRatioInstruction(task, profile, userPrompt))

	switch task {
	case model.TaskEdit:
		return common + `

ROLE: Expert Photo Editor.
TASK: Perform the user's edit request on the image.`

	case model.TaskSketch:
		return common + `

ROLE: Hyper-Realistic Render Engine & Concept Artist.
TASK: Transform the rough sketch into a high-end Photograph (DSLR quality).

**CORE INSTRUCTION**:
You are CREATING A NEW IMAGE from scratch using the sketch as a structural guide.

**EXECUTION PRIORITY**:
1. **IGNORE WHITE SPACE**: The white background is just a container. FILL IT COMPLETELY with a realistic environment.
2. **INTERPRET STROKES**: Do not just color inside the lines. Replace lines with realistic edges and textures.
3. **LIGHTING & PHYSICS**: Apply consistent Global Illumination across the entire scene (subject + generated background).
4. **FULL FRAME**: The result must be a full rectangular image with NO borders.`

	case model.TaskFace:
		return common + `

ROLE: World-Class Portrait Photographer & VFX Supervisor.
TASK: Create a HYPER-REALISTIC, indistinguishable-from-reality photograph.

**STYLE & QUALITY MANDATES (MUST FOLLOW)**:
1. **TRUE PHOTOREALISM**: The output must look like a RAW photo taken with a high-end DSLR (e.g., Sony A7R or Canon R5) and 85mm lens.
2. **SKIN TEXTURE**: You MUST render visible skin pores, fine wrinkles, vellus hair, and natural skin imperfections. Do NOT generate smooth, plastic, or "airbrushed" skin.
3. **LIGHTING & PHYSICS**: Use realistic Global Illumination. Shadows must interact naturally with the facial structure and clothing folds. Subsurface scattering must be visible on skin.
4. **NO AI ARTIFACTS**: Eliminate any "waxy" look or cartoonish eyes. The iris must have depth and refraction.
5. **INTEGRATION**: The face must not look "pasted". Match the ISO noise/grain of the face with the generated body and background perfectly.

**CORE INSTRUCTION**:
You are NOT just editing the input image. You are CREATING A NEW IMAGE from scratch (Step 1) and then ensuring the main subject looks like the person in the input (Step 2 & 3).

**AVOID THESE ERRORS**:
- Do NOT leave white space.
- Do NOT keep the original rectangular crop of the input face.
- Do NOT make the person look like a cartoon or 3D model.`

	default:
		return common
	}
}

// BuildPrompt - 멀티모달 요청의 최종 프롬프트
func BuildPrompt(task model.TaskType, profile *ratio.Profile, userPrompt string) string {
	return fmt.Sprintf("%s\n\nUser's Request: %s", buildSystemContext(task, profile, userPrompt), userPrompt)
}
