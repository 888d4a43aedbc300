package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataURI is returned for attachments that are not base64 data URIs.
var ErrInvalidDataURI = errors.New("invalid data uri")

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
	File     *filePart `json:"file,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// DataURI is a decoded data:<mime>;base64,<data> attachment.
type DataURI struct {
	MIMEType string
	Data     []byte
}

// ParseDataURI decodes a base64 data URI. The MIME type is required.
func ParseDataURI(uri string) (DataURI, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: payload must be base64 encoded", ErrInvalidDataURI)
	}
	if mime == "" || !strings.Contains(mime, "/") {
		return DataURI{}, fmt.Errorf("%w: missing mime type", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return DataURI{}, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	return DataURI{MIMEType: strings.ToLower(mime), Data: data}, nil
}

// userContent returns the plain prompt, or text plus file parts when files are attached.
func userContent(prompt string, files []string) (any, error) {
	if len(files) == 0 {
		return prompt, nil
	}
	parts := make([]contentPart, 0, len(files)+1)
	parts = append(parts, contentPart{Type: "text", Text: prompt})
	for i, uri := range files {
		d, err := ParseDataURI(uri)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i+1, err)
		}
		uri = strings.TrimSpace(uri)
		if strings.HasPrefix(d.MIMEType, "image/") {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}})
			continue
		}
		parts = append(parts, contentPart{
			Type: "file",
			File: &filePart{Filename: fmt.Sprintf("attachment-%d", i+1), FileData: uri},
		})
	}
	return parts, nil
}
