package analysis

import "fmt"

// The query is inserted verbatim: no escaping, no truncation.

const uploadPromptTemplate = `You are an expert video content analyst. Carefully analyze the uploaded video,
extracting key points, themes, and insights. Identify important topics, conversations, and visual elements.
Based on the video content, respond to the following user query and supplementary web research: %s.

Ensure your response is:

Accurate and based entirely on the video’s content.
Detailed with key takeaways and structured insights.
Clear & user-friendly, making it easy to understand.
Actionable, providing meaningful conclusions or recommendations.
Additionally, summarize the video in a concise yet informative way, highlighting its core message, key moments, and any relevant observations.
`

const urlPromptTemplate = `You are an expert video content analyst. Carefully analyze the uploaded video:
**Title:** "%s"
**Creator:** %s

### Task:
- Extract key points, themes, and insights.
- Identify important topics, conversations, and visual elements.
- Analyze the video content and provide a response based on the following user query:
**User Query:** %s
- Supplement insights with relevant web research where necessary.

### Response Guidelines:
1. **Accuracy:** Ensure the response is entirely based on the video’s content.
2. **Detail:** Provide structured insights with key takeaways.
3. **Clarity:** Keep it clear, user-friendly, and easy to understand.
4. **Actionability:** Offer meaningful conclusions or recommendations.

### Additional Requirement:
- Summarize the video concisely yet informatively, highlighting its core message, key moments, and relevant observations.
`

// captionsPreamble introduces supplemental caption text sent after the prompt.
const captionsPreamble = "Timestamped captions of the video, for reference:\n\n"

// UploadPrompt builds the prompt for an uploaded video.
func UploadPrompt(query string) string {
	return fmt.Sprintf(uploadPromptTemplate, query)
}

// URLPrompt builds the prompt for a YouTube video.
func URLPrompt(title, author, query string) string {
	return fmt.Sprintf(urlPromptTemplate, title, author, query)
}
