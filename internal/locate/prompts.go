package locate

import "fmt"

// coarsePrompt asks for the bounding box of the broad region containing the
// candidate set, excluding navigation chrome. Fractions keep the reply
// independent of the image's pixel dimensions.
func coarsePrompt(target string) string {
	return fmt.Sprintf(`Analyze this EMR screenshot.

Goal: find the broad region that contains: %s.
Identify the main data area (for example the patient table), excluding window
chrome, sidebars and navigation bars.

Return the region's bounding box as fractions of the full image (0.0-1.0).

Output JSON:
{"found": true, "top": 0.1, "left": 0.05, "bottom": 0.8, "right": 0.95, "reason": "..."}
If the region is not visible, output {"found": false, "reason": "..."}`, target)
}

// finePrompt asks for the precise point within a cropped sub-image,
// expressed as fractions of the crop's own dimensions.
func finePrompt(target string) string {
	return fmt.Sprintf(`This image is a cropped region of an EMR screen.

Goal: find the exact clickable location of: %s.
Return the center of the target as fractions of THIS image's width and
height (0.0-1.0).

Output JSON:
{"found": true, "x_percent": 0.12, "y_percent": 0.34, "reason": "..."}
If the target is not visible, output {"found": false, "reason": "..."}`, target)
}
