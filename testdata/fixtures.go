// Package testdata provides golden fixtures for the detective HTTP API.
// Each fixture pairs a request to one route with the answer the mock model
// provider returns, plus what the API, the history store and the run
// recorder are expected to show afterwards.
package testdata

import (
	"encoding/base64"
	"encoding/json"
)

// Fixture represents a single golden scenario.
type Fixture struct {
	Name           string   // human-readable scenario name
	Route          string   // API route to POST to
	RequestBody    string   // JSON request body sent to the API
	ModelContent   string   // JSON the model answers with (message content)
	UpstreamStatus int      // HTTP status from the mock provider
	ExpectedCode   int      // HTTP status the API should return
	ExpectedKind   string   // history kind recorded, "" for none
	ExpectedTitle  string   // history title recorded
	ExpectModel    bool     // whether the model is called (and a run is recorded)
	Sensitive      []string // input text that must never reach run records
}

// Completion wraps content in an OpenAI chat completion response.
func Completion(model, content string) string {
	return mustJSON(map[string]interface{}{
		"id":    "chatcmpl-detective",
		"model": model,
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{
			"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160,
		},
	})
}

const (
	catText1 = "The cat sat on the mat while the afternoon sun warmed the quiet old house."
	catText2 = "The dog sat on the mat while the afternoon sun warmed the busy old house."

	climateText = "Climate change refers to long-term shifts in temperatures and weather patterns. " +
		"These shifts may be natural, but since the 1800s human activities have been the main driver."
)

// CompareTexts returns a text-vs-text comparison.
func CompareTexts() Fixture {
	return Fixture{
		Name:           "compare_texts",
		Route:          "/api/compare",
		RequestBody:    mustJSON(map[string]string{"text1": catText1, "text2": catText2}),
		ModelContent:   `{"matchedPhrases":["sat on the mat","while the afternoon sun warmed the"]}`,
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "text",
		ExpectedTitle:  "Text vs Text Comparison",
		ExpectModel:    true,
		Sensitive:      []string{catText1, catText2},
	}
}

// FileCheck returns a file comparison with a plain-text attachment.
func FileCheck() Fixture {
	file := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(climateText))
	return Fixture{
		Name:  "file_check",
		Route: "/api/file-check",
		RequestBody: mustJSON(map[string]string{
			"fileName":      "essay.txt",
			"fileDataUri":   file,
			"textToCompare": "Since the 1800s human activities have been the main driver of climate change.",
		}),
		ModelContent:   `{"similarityPercentage":64,"matchedPhrases":["human activities have been the main driver"]}`,
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "file",
		ExpectedTitle:  "File Check: essay.txt",
		ExpectModel:    true,
		Sensitive:      []string{file, "main driver of climate change"},
	}
}

// Contextual returns a contextual analysis against the built-in references.
func Contextual() Fixture {
	return Fixture{
		Name:           "contextual",
		Route:          "/api/contextual",
		RequestBody:    mustJSON(map[string]string{"inputText": climateText}),
		ModelContent:   `{"similarityResults":[{"referenceText":"Climate change refers to long-term shifts in temperatures and weather patterns.","similarityScore":0.93,"isPlagiarized":true}]}`,
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "contextual",
		ExpectedTitle:  "Contextual Analysis",
		ExpectModel:    true,
	}
}

// AdvancedCheck returns a sentence-level plagiarism analysis.
func AdvancedCheck() Fixture {
	return Fixture{
		Name:        "advanced_check",
		Route:       "/api/advanced-check",
		RequestBody: mustJSON(map[string]string{"text": climateText}),
		ModelContent: mustJSON(map[string]interface{}{
			"overallPlagiarismPercentage": 55,
			"paraphrasingDetected":        "Medium",
			"uniqueContent":               45,
			"sentenceAnalysis": []map[string]string{
				{"sentence": "Climate change refers to long-term shifts in temperatures and weather patterns.", "status": "Likely Plagiarized", "reason": "Verbatim definition"},
				{"sentence": "These shifts may be natural, but since the 1800s human activities have been the main driver.", "status": "Original", "reason": "No close source"},
			},
			"highlightedText":    "[PLAGIARIZED]Climate change refers to long-term shifts[/PLAGIARIZED] in temperatures.",
			"sourceTypeGuess":    []string{"Encyclopedia"},
			"rewriteSuggestions": []map[string]string{},
			"finalReport": map[string]interface{}{
				"plagiarism":          55,
				"originality":         45,
				"paraphrasing":        "Medium",
				"sentenceOriginality": map[string]int{"original": 9, "possiblyPlagiarized": 9, "likelyPlagiarized": 9},
				"readabilityScore":    "Grade 10",
				"fixRecommendations":  "Cite the definition.",
			},
		}),
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "advanced",
		ExpectedTitle:  "Advanced Plagiarism Check",
		ExpectModel:    true,
	}
}

// GrammarCheck returns a grammar check with two corrections.
func GrammarCheck() Fixture {
	return Fixture{
		Name:           "grammar_check",
		Route:          "/api/grammar-check",
		RequestBody:    mustJSON(map[string]string{"text": "Their going to the libary tomorrow."}),
		ModelContent:   `{"correctedText":"They're going to the library tomorrow.","corrections":[{"original":"Their","corrected":"They're","explanation":"Contraction of they are"},{"original":"libary","corrected":"library","explanation":"Spelling"}],"report":{"totalCorrections":7,"readabilityScoreBefore":"Fair","readabilityScoreAfter":"Good","summary":"Two fixes."}}`,
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "grammar",
		ExpectedTitle:  "Grammar Check",
		ExpectModel:    true,
		Sensitive:      []string{"Their going to the libary tomorrow."},
	}
}

// Summarize returns a summary at 30 percent length.
func Summarize() Fixture {
	return Fixture{
		Name:           "summarize",
		Route:          "/api/summarize",
		RequestBody:    mustJSON(map[string]interface{}{"text": climateText, "summaryLength": 30}),
		ModelContent:   `{"summary":"Human activity drives climate change."}`,
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "summarizer",
		ExpectedTitle:  "Text Summarization",
		ExpectModel:    true,
	}
}

// SensitivePayload returns a grammar check whose text carries personal data.
func SensitivePayload() Fixture {
	text := "My SSN is 123-45-6789 and my email is john@example.com, please fix my grammer."
	return Fixture{
		Name:           "sensitive_payload",
		Route:          "/api/grammar-check",
		RequestBody:    mustJSON(map[string]string{"text": text}),
		ModelContent:   `{"correctedText":"My SSN is 123-45-6789 and my email is john@example.com; please fix my grammar.","corrections":[{"original":"grammer","corrected":"grammar","explanation":"Spelling"}],"report":{}}`,
		UpstreamStatus: 200,
		ExpectedCode:   200,
		ExpectedKind:   "grammar",
		ExpectedTitle:  "Grammar Check",
		ExpectModel:    true,
		Sensitive:      []string{"123-45-6789", "john@example.com", "please fix my grammer"},
	}
}

// ProviderRejected returns a grammar check the provider refuses with 401.
func ProviderRejected() Fixture {
	return Fixture{
		Name:           "provider_rejected",
		Route:          "/api/grammar-check",
		RequestBody:    mustJSON(map[string]string{"text": "This sentence are wrong."}),
		ModelContent:   `{"error":{"message":"invalid api key"}}`,
		UpstreamStatus: 401,
		ExpectedCode:   502,
		ExpectModel:    true,
	}
}

// CompareProviderDown returns a comparison whose model call fails; the
// lexical score still comes back.
func CompareProviderDown() Fixture {
	f := CompareTexts()
	f.Name = "compare_provider_down"
	f.ModelContent = `{"error":{"message":"bad request"}}`
	f.UpstreamStatus = 400
	return f
}

// SummarizeFallback returns a summary request answered by the local fallback.
func SummarizeFallback() Fixture {
	f := Summarize()
	f.Name = "summarize_fallback"
	f.ModelContent = `{"error":{"message":"bad request"}}`
	f.UpstreamStatus = 400
	return f
}

// MalformedRequest returns a request body that is not JSON.
func MalformedRequest() Fixture {
	return Fixture{
		Name:           "malformed_request",
		Route:          "/api/compare",
		RequestBody:    `{this is not json`,
		UpstreamStatus: 200,
		ExpectedCode:   400,
	}
}

// TooShort returns a grammar check below the minimum input length.
func TooShort() Fixture {
	return Fixture{
		Name:           "too_short",
		Route:          "/api/grammar-check",
		RequestBody:    mustJSON(map[string]string{"text": "hi"}),
		UpstreamStatus: 200,
		ExpectedCode:   400,
	}
}

// AllFixtures returns every golden fixture.
func AllFixtures() []Fixture {
	return []Fixture{
		CompareTexts(),
		FileCheck(),
		Contextual(),
		AdvancedCheck(),
		GrammarCheck(),
		Summarize(),
		SensitivePayload(),
		ProviderRejected(),
		CompareProviderDown(),
		SummarizeFallback(),
		MalformedRequest(),
		TooShort(),
	}
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
