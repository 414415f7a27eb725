package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Read-only and document-lifecycle tools. None of these acquires the
// resume lock.

func registerDocumentTools(r *Registry) {
	r.MustRegister(Tool{
		Name:        "list_documents",
		Description: "List the user's uploaded documents.",
		Schema:      json.RawMessage(`{"type": "object", "properties": {}}`),
		Handler:     listDocuments,
	})

	r.MustRegister(Tool{
		Name:        "search_documents",
		Description: "Search the user's uploaded documents for passages similar to a query.",
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string"},
				"k": {"type": "integer", "description": "How many passages to return"}
			},
			"required": ["query"]
		}`),
		Handler: searchDocuments,
	})

	r.MustRegister(Tool{
		Name:        "delete_document",
		Description: "Delete one of the user's uploaded documents, including its search index entry.",
		Schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"document_id": {"type": "integer"}
			},
			"required": ["document_id"]
		}`),
		Handler: deleteDocument,
	})
}

func listDocuments(ctx context.Context, deps *Deps, _ map[string]any) (string, error) {
	docs, err := deps.Documents.ListByUser(ctx, deps.User.ID)
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return "No documents uploaded yet.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d documents:\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&b, "- #%d %s (%s, %d bytes)\n", d.ID, d.FileName, d.MimeType, d.SizeBytes)
	}
	return b.String(), nil
}

func searchDocuments(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	chunks, err := deps.Documents.QuerySimilar(ctx, deps.User.ID, strArg(args, "query"), intArg(args, "k", 5))
	if err != nil {
		return "", fmt.Errorf("search documents: %w", err)
	}
	if len(chunks) == 0 {
		return "No matching passages found.", nil
	}
	return "Matching passages:\n" + strings.Join(chunks, "\n---\n"), nil
}

func deleteDocument(ctx context.Context, deps *Deps, args map[string]any) (string, error) {
	id := uintArg(args, "document_id")
	if err := deps.Documents.Delete(ctx, deps.User.ID, id); err != nil {
		return "", fmt.Errorf("delete document: %w", err)
	}
	return fmt.Sprintf("Document #%d deleted.", id), nil
}
