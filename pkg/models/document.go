package models

import (
	"encoding/json"
	"fmt"

	"github.com/gosimple/slug"
)

// Section is one retrievable chunk of text within a Document. Section order
// is meaningful and preserved through indexing.
type Section struct {
	Text         string `json:"text"`
	Title        string `json:"title"`
	MetadataJSON string `json:"metadataJson,omitempty"`
}

// Document is the unit committed to the corpus. Field names follow the corpus
// index API: documentId, title, metadataJson and section. Title and
// metadataJson are omitted from the wire request when empty.
type Document struct {
	DocumentID   string    `json:"documentId"`
	Title        string    `json:"title,omitempty"`
	MetadataJSON string    `json:"metadataJson,omitempty"`
	Sections     []Section `json:"section"`
}

// GenerateDocumentID derives the stable document id from a source URL or
// filename. The id is a deterministic slug and is the sole identity used for
// conflict detection and deletion.
func GenerateDocumentID(source string) string {
	return slug.Make(source)
}

// NewDocument assembles a Document from ordered segment texts. titles and
// sectionMetadata may be nil, in which case they default to sequences of
// empty values parallel to texts; when given, they are assumed to have the
// same length as texts. docTitle and docMetadata are attached only when
// non-empty.
func NewDocument(id string, texts, titles []string, sectionMetadata []map[string]any, docMetadata map[string]any, docTitle string) (Document, error) {
	if titles == nil {
		titles = make([]string, len(texts))
	}
	if sectionMetadata == nil {
		sectionMetadata = make([]map[string]any, len(texts))
	}

	doc := Document{
		DocumentID: id,
		Title:      docTitle,
		Sections:   make([]Section, 0, len(texts)),
	}

	if len(docMetadata) > 0 {
		raw, err := json.Marshal(docMetadata)
		if err != nil {
			return Document{}, fmt.Errorf("failed to marshal document metadata: %w", err)
		}
		doc.MetadataJSON = string(raw)
	}

	for i, text := range texts {
		section := Section{Text: text, Title: titles[i]}
		if len(sectionMetadata[i]) > 0 {
			raw, err := json.Marshal(sectionMetadata[i])
			if err != nil {
				return Document{}, fmt.Errorf("failed to marshal section metadata: %w", err)
			}
			section.MetadataJSON = string(raw)
		}
		doc.Sections = append(doc.Sections, section)
	}

	return doc, nil
}
