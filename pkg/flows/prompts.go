package flows

import (
	"fmt"
	"strings"
)

// Flow names, used for run records and span names.
const (
	FlowCompareTexts  = "compare_texts"
	FlowFileCheck     = "file_check"
	FlowContextual    = "contextual_analysis"
	FlowAdvancedCheck = "advanced_check"
	FlowGrammarCheck  = "grammar_check"
	FlowSummarize     = "summarize"
)

const compareSystemPrompt = `You are a plagiarism detection tool.
TASK: Find the phrases that appear in both texts, verbatim or nearly verbatim.
OUTPUT: JSON { "matchedPhrases": string[] }`

const fileCheckSystemPrompt = `You are a plagiarism checker.
TASK: Compare the content of the attached file with the given text. Estimate how much of the
text is similar to the file and list the phrases they share.
OUTPUT: JSON { "similarityPercentage": number (0-100), "matchedPhrases": string[] }`

const contextualSystemPrompt = `You are a plagiarism detection expert.
TASK: Compare the input text with every entry of the reference database, taking context and
meaning into account, not only wording. For each reference give a similarity score between
0 and 1 and decide whether the input is plagiarized from it.
OUTPUT: JSON { "similarityResults": [ { "referenceText": string, "similarityScore": number, "isPlagiarized": boolean } ] }`

const advancedSystemPrompt = `You are an advanced plagiarism checker engine.
Detect direct copying, paraphrasing, structural copying, AI-generated similarity, citation
issues, self-plagiarism and unoriginal patterns. Do not fetch URLs; analyze the text only.
TASK:
1. Give an overall plagiarism percentage (0-100), the paraphrasing level (e.g. Low, Medium, High)
   and the percentage of unique content.
2. Classify every sentence as "Original", "Possibly Plagiarized" or "Likely Plagiarized" and
   explain why.
3. Return the text with plagiarized parts wrapped in [PLAGIARIZED]...[/PLAGIARIZED].
4. Guess the source types of copied content (Websites, Academic papers, Blogs/articles,
   Social media, AI model output, Unknown/public domain).
5. For each plagiarized section give a human, a simplified and a professional rewrite.
6. Finish with a report: plagiarism %, originality %, paraphrasing level, readability
   (e.g. "High School Level") and fix recommendations.
OUTPUT: JSON {
  "overallPlagiarismPercentage": number,
  "paraphrasingDetected": string,
  "uniqueContent": number,
  "sentenceAnalysis": [ { "sentence": string, "status": string, "reason": string } ],
  "highlightedText": string,
  "sourceTypeGuess": string[],
  "rewriteSuggestions": [ { "plagiarizedText": string, "humanRewrite": string, "simplifiedRewrite": string, "professionalRewrite": string } ],
  "finalReport": { "plagiarism": number, "originality": number, "paraphrasing": string,
    "sentenceOriginality": { "original": number, "possiblyPlagiarized": number, "likelyPlagiarized": number },
    "readabilityScore": string, "fixRecommendations": string }
}`

const grammarSystemPrompt = `You are an expert grammar and spelling checker.
TASK: Fix every grammar, spelling and punctuation error in the text. List each correction with
the original snippet, the corrected snippet and the kind of error (e.g. "Subject-verb
agreement", "Spelling mistake"). Report readability before and after (e.g. "High School
Level") and summarize the most common errors.
OUTPUT: JSON {
  "correctedText": string,
  "corrections": [ { "original": string, "corrected": string, "explanation": string } ],
  "report": { "totalCorrections": number, "readabilityScoreBefore": string, "readabilityScoreAfter": string, "summary": string }
}`

const summarizeSystemPrompt = `You are an expert text summarizer.
TASK: Summarize the text to roughly the requested percentage of its original length, keeping
the key information and main ideas.
OUTPUT: JSON { "summary": string, "originalWordCount": number, "summaryWordCount": number }`

func compareUserPrompt(text1, text2 string) string {
	return fmt.Sprintf("Text 1:\n%s\n\nText 2:\n%s", strings.TrimSpace(text1), strings.TrimSpace(text2))
}

func fileCheckUserPrompt(fileName, text string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("File name: %s\n\nText to compare:\n%s", name, strings.TrimSpace(text))
}

func contextualUserPrompt(input string, refs []string) string {
	var b strings.Builder
	b.WriteString("Input text:\n")
	b.WriteString(strings.TrimSpace(input))
	b.WriteString("\n\nReference database:\n")
	for _, r := range refs {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}

func advancedUserPrompt(text string) string {
	return "Text:\n" + strings.TrimSpace(text)
}

func grammarUserPrompt(text string) string {
	return "Analyze the following text:\n" + strings.TrimSpace(text)
}

func summarizeUserPrompt(text string, percent int) string {
	return fmt.Sprintf("Summarize the text to about %d%% of its original length.\n\nText:\n%s",
		percent, strings.TrimSpace(text))
}
