// Package factory provides user-defined factories for commonly used test fixtures.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// DidOpenNotification builds a textDocument/didOpen notification carrying the
// full document text.
func DidOpenNotification(docURI string, text string) []byte {
	return notification("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":        docURI,
			"languageId": "lean4",
			"version":    1,
			"text":       text,
		},
	})
}

// DidChangeNotification builds a full-sync textDocument/didChange notification.
func DidChangeNotification(docURI string, version int, text string) []byte {
	return notification("textDocument/didChange", map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":     docURI,
			"version": version,
		},
		"contentChanges": []map[string]interface{}{
			{"text": text},
		},
	})
}

func notification(method string, params interface{}) []byte {
	out, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
	if err != nil {
		panic(fmt.Sprintf("marshalling %s fixture: %v", method, err))
	}
	return out
}
